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

// ApplicantService covers the applicant document workflow: who applied,
// their CVs, and accept/reject decisions.
type ApplicantService struct {
	Client *client.Client
}

func NewApplicantService(c *client.Client) *ApplicantService {
	return &ApplicantService{Client: c}
}

// Mine returns the signed-in user's own applications.
func (s *ApplicantService) Mine(ctx context.Context) ([]models.Applicant, error) {
	return client.GetList[models.Applicant](ctx, s.Client, "/api/v1/applicants/me")
}

// ForTrainer returns applicants to every course owned by username.
func (s *ApplicantService) ForTrainer(ctx context.Context, username string) ([]models.Applicant, error) {
	return client.GetList[models.Applicant](ctx, s.Client, "/api/v1/applicants/trainer/"+url.PathEscape(username))
}

func (s *ApplicantService) ForJob(ctx context.Context, jobID int64) ([]models.Applicant, error) {
	return client.GetList[models.Applicant](ctx, s.Client, fmt.Sprintf("/api/v1/jobs/%d/applicants", jobID))
}

func (s *ApplicantService) ForCourse(ctx context.Context, courseID int64) ([]models.Applicant, error) {
	return client.GetList[models.Applicant](ctx, s.Client, fmt.Sprintf("/api/v1/courses/%d/applicants", courseID))
}

func (s *ApplicantService) UpdateStatus(ctx context.Context, id int64, req *dtos.ApplicantStatusRequest) (*models.Applicant, error) {
	var app models.Applicant
	if err := s.Client.SendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/v1/applicants/%d/status", id), req, &app); err != nil {
		return nil, fmt.Errorf("update applicant %d: %w", id, err)
	}
	return &app, nil
}

// CV fetches the applicant's uploaded document. key is the applicant's Key().
func (s *ApplicantService) CV(ctx context.Context, key string) (*client.Blob, error) {
	return s.Client.GetBlob(ctx, "/api/v1/applicants/"+url.PathEscape(key)+"/cv")
}
