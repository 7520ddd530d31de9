package services

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/oauth2"

	"github.com/justsurfingit/talent-dashboard/internal/client"
	"github.com/justsurfingit/talent-dashboard/internal/dtos"
	"github.com/justsurfingit/talent-dashboard/internal/models"
)

func newClient(t *testing.T, h http.Handler, opts ...client.Option) *client.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]client.Option{client.WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return client.New(srv.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}), opts...)
}

func TestJobService_ListAcceptsBothShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"jobId":1,"title":"Go dev"},{"jobId":2,"title":"SRE"}],"totalPages":1}`))
	})
	mux.HandleFunc("GET /api/v1/jobs/employer/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "acme corp" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"jobId":3,"title":"PM"}]`))
	})
	s := NewJobService(newClient(t, mux))

	jobs, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 2 || jobs[1].Key() != "2" {
		t.Errorf("List() = %+v", jobs)
	}

	mine, err := s.ListByEmployer(context.Background(), "acme corp")
	if err != nil {
		t.Fatalf("ListByEmployer() error = %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "PM" {
		t.Errorf("ListByEmployer() = %+v", mine)
	}
}

func TestJobService_CreateAndImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"jobId":10,"title":"Go dev","company":"Acme"}`))
	})
	mux.HandleFunc("GET /api/v1/jobs/10/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg"))
	})
	s := NewJobService(newClient(t, mux))

	job, err := s.CreateJob(context.Background(), &dtos.JobCreationRequest{Title: "Go dev", Company: "Acme", Description: "x"})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.JobID != 10 {
		t.Errorf("JobID = %d, want 10", job.JobID)
	}

	blob, err := s.Image(context.Background(), job.Key())
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if blob.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", blob.ContentType)
	}

	if _, err := s.Image(context.Background(), "11"); !client.IsNotFound(err) {
		t.Errorf("Image(11) error = %v, want 404", err)
	}
}

type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

func TestUserService_AdminListRefreshesOnce(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"username":"root","role":"ADMIN"}]`))
	})
	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var refreshes atomic.Int32
	s := NewUserService(newClient(t, mux, client.WithRefresher(refresherFunc(func(context.Context) error {
		refreshes.Add(1)
		return nil
	}))))

	users, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 1 || users[0].Role != models.RoleAdmin {
		t.Errorf("List() = %+v", users)
	}

	if _, err := s.Profile(context.Background()); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("Profile() error = %v, want ErrUnauthorized", err)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refreshes = %d, want 1 (profile must not refresh)", got)
	}
}

func TestApplicantService_UpdateStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/applicants/5/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"status":"ACCEPTED"}`))
	})
	s := NewApplicantService(newClient(t, mux))

	app, err := s.UpdateStatus(context.Background(), 5, &dtos.ApplicantStatusRequest{Status: models.ApplicantAccepted})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if app.Status != models.ApplicantAccepted {
		t.Errorf("Status = %q", app.Status)
	}
}

func TestMatchJobs(t *testing.T) {
	jobs := []models.Job{
		{JobID: 1, Title: "Backend Engineer", Company: "Stripe", Location: "Remote"},
		{JobID: 2, Title: "Frontend Engineer", Company: "Acme", Location: "Berlin"},
		{JobID: 3, Title: "Data Analyst", Company: "Stripe", Location: "Dublin"},
	}

	tests := []struct {
		query string
		want  []int64
	}{
		{"", []int64{1, 2, 3}},
		{"stripe", []int64{1, 3}},
		{"engineer berlin", []int64{2}},
		{"a", []int64{1, 2, 3}},
		{"golang", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := MatchJobs(jobs, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("MatchJobs(%q) = %d jobs, want %d", tt.query, len(got), len(tt.want))
			}
			for i, j := range got {
				if j.JobID != tt.want[i] {
					t.Errorf("MatchJobs(%q)[%d] = %d, want %d", tt.query, i, j.JobID, tt.want[i])
				}
			}
		})
	}
}

func TestMatchCourses(t *testing.T) {
	courses := []models.Course{
		{CourseID: 1, Title: "Intro to Go", Trainer: "rob"},
		{CourseID: 2, Title: "Kubernetes", Trainer: "kelsey", Description: "go deeper into ops"},
	}
	if got := MatchCourses(courses, "go"); len(got) != 2 {
		t.Errorf("MatchCourses(go) = %d, want 2", len(got))
	}
	if got := MatchCourses(courses, "kelsey"); len(got) != 1 || got[0].CourseID != 2 {
		t.Errorf("MatchCourses(kelsey) = %+v", got)
	}
}

type fakeModel struct {
	reply string
	seen  [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.seen = append(f.seen, messages)
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: " " + f.reply + "\n"}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.reply, nil
}

func TestChatService_KeepsTranscriptPerUser(t *testing.T) {
	m := &fakeModel{reply: "Try the Go course."}
	s := NewChatServiceWithModel(m)

	reply, err := s.Reply(context.Background(), "ana", "What should I learn?", "- Intro to Go")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply != "Try the Go course." {
		t.Errorf("Reply() = %q", reply)
	}
	if _, err := s.Reply(context.Background(), "ana", "And after that?", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reply(context.Background(), "bob", "Hi", ""); err != nil {
		t.Fatal(err)
	}

	// system + 2 history + new turn for ana's second message
	if got := len(m.seen[1]); got != 4 {
		t.Errorf("second turn sent %d messages, want 4", got)
	}
	// bob starts fresh: system + turn
	if got := len(m.seen[2]); got != 2 {
		t.Errorf("bob's turn sent %d messages, want 2", got)
	}

	s.Reset("ana")
	if _, err := s.Reply(context.Background(), "ana", "Hello again", ""); err != nil {
		t.Fatal(err)
	}
	if got := len(m.seen[3]); got != 2 {
		t.Errorf("after Reset sent %d messages, want 2", got)
	}
}

func TestChatService_Disabled(t *testing.T) {
	s := NewChatServiceWithModel(nil)
	if s.Enabled() {
		t.Error("Enabled() = true without a model")
	}
	if _, err := s.Reply(context.Background(), "ana", "hi", ""); !errors.Is(err, ErrChatDisabled) {
		t.Errorf("Reply() error = %v, want ErrChatDisabled", err)
	}
}

func TestJournalService_NilIsDisabled(t *testing.T) {
	var j *JournalService
	if j.Enabled() {
		t.Error("nil journal reports enabled")
	}
	NewJournalService(nil).RecordCommit("jobs", 3)
	NewJournalService(nil).RecordFailure("jobs", errors.New("x"))
	events, err := NewJournalService(nil).Recent("jobs", 10)
	if err != nil || events != nil {
		t.Errorf("Recent() = %v, %v", events, err)
	}
}
