package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/justsurfingit/talent-dashboard/internal/client"
	"github.com/justsurfingit/talent-dashboard/internal/dtos"
	"github.com/justsurfingit/talent-dashboard/internal/models"
)

type JobService struct {
	Client *client.Client
}

func NewJobService(c *client.Client) *JobService {
	return &JobService{
		Client: c,
	}
}

// List returns every open job posting.
func (s *JobService) List(ctx context.Context) ([]models.Job, error) {
	return client.GetList[models.Job](ctx, s.Client, "/api/v1/jobs")
}

// ListByEmployer returns the postings created by one employer account.
func (s *JobService) ListByEmployer(ctx context.Context, username string) ([]models.Job, error) {
	return client.GetList[models.Job](ctx, s.Client, "/api/v1/jobs/employer/"+url.PathEscape(username))
}

func (s *JobService) CreateJob(ctx context.Context, req *dtos.JobCreationRequest) (*models.Job, error) {
	var job models.Job
	if err := s.Client.SendJSON(ctx, http.MethodPost, "/api/v1/jobs", req, &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

func (s *JobService) UpdateJob(ctx context.Context, id int64, req *dtos.JobCreationRequest) (*models.Job, error) {
	var job models.Job
	if err := s.Client.SendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/v1/jobs/%d", id), req, &job); err != nil {
		return nil, fmt.Errorf("update job %d: %w", id, err)
	}
	return &job, nil
}

func (s *JobService) DeleteJob(ctx context.Context, id int64) error {
	if err := s.Client.Delete(ctx, fmt.Sprintf("/api/v1/jobs/%d", id)); err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	return nil
}

// Image fetches the posting's picture. key is the job's Key().
func (s *JobService) Image(ctx context.Context, key string) (*client.Blob, error) {
	return s.Client.GetBlob(ctx, "/api/v1/jobs/"+url.PathEscape(key)+"/image")
}

// Apply submits the signed-in employee's application to a job.
func (s *JobService) Apply(ctx context.Context, id int64) (*models.Applicant, error) {
	var app models.Applicant
	if err := s.Client.SendJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/apply", id), nil, &app); err != nil {
		return nil, fmt.Errorf("apply to job %d: %w", id, err)
	}
	return &app, nil
}
