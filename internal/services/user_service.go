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

// UserService handles profiles and, for admins, account management. Admin
// calls retry once after a token refresh when the backend rejects the token.
type UserService struct {
	Client *client.Client
}

func NewUserService(c *client.Client) *UserService {
	return &UserService{Client: c}
}

func (s *UserService) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.Client.GetJSON(ctx, "/api/v1/users/me", &u); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, req *dtos.ProfileUpdateRequest) (*models.User, error) {
	var u models.User
	if err := s.Client.SendJSON(ctx, http.MethodPut, "/api/v1/users/me", req, &u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return client.GetListWithRefresh[models.User](ctx, s.Client, "/api/v1/admin/users")
}

// DeleteUser removes an account. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.Client.SendJSONWithRefresh(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func (s *UserService) Avatar(ctx context.Context, key string) (*client.Blob, error) {
	return s.Client.GetBlob(ctx, "/api/v1/users/"+url.PathEscape(key)+"/image")
}
