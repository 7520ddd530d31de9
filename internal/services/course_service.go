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

type CourseService struct {
	Client *client.Client
}

func NewCourseService(c *client.Client) *CourseService {
	return &CourseService{Client: c}
}

func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	return client.GetList[models.Course](ctx, s.Client, "/api/v1/courses")
}

func (s *CourseService) ListByTrainer(ctx context.Context, username string) ([]models.Course, error) {
	return client.GetList[models.Course](ctx, s.Client, "/api/v1/courses/trainer/"+url.PathEscape(username))
}

func (s *CourseService) CreateCourse(ctx context.Context, req *dtos.CourseCreationRequest) (*models.Course, error) {
	var course models.Course
	if err := s.Client.SendJSON(ctx, http.MethodPost, "/api/v1/courses", req, &course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, id int64, req *dtos.CourseCreationRequest) (*models.Course, error) {
	var course models.Course
	if err := s.Client.SendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/v1/courses/%d", id), req, &course); err != nil {
		return nil, fmt.Errorf("update course %d: %w", id, err)
	}
	return &course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, id int64) error {
	if err := s.Client.Delete(ctx, fmt.Sprintf("/api/v1/courses/%d", id)); err != nil {
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	return nil
}

func (s *CourseService) Image(ctx context.Context, key string) (*client.Blob, error) {
	return s.Client.GetBlob(ctx, "/api/v1/courses/"+url.PathEscape(key)+"/image")
}

// Enroll submits the signed-in employee's application to a course.
func (s *CourseService) Enroll(ctx context.Context, id int64) (*models.Applicant, error) {
	var app models.Applicant
	if err := s.Client.SendJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enroll", id), nil, &app); err != nil {
		return nil, fmt.Errorf("enroll in course %d: %w", id, err)
	}
	return &app, nil
}
