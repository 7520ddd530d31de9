package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/justsurfingit/talent-dashboard/internal/client"
	"github.com/justsurfingit/talent-dashboard/internal/dtos"
)

// Authenticator signs in against the backend and keeps the Store current.
// It implements client.Refresher.
type Authenticator struct {
	baseURL string
	http    *http.Client
	store   *Store
	logger  *log.Logger
	now     func() time.Time
}

func NewAuthenticator(baseURL string, store *Store, hc *http.Client, logger *log.Logger) *Authenticator {
	if hc == nil {
		hc = &http.Client{Timeout: client.DefaultTimeout}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Authenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Login exchanges credentials for a session and stores it.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	var resp dtos.LoginResponse
	if err := a.post(ctx, "/api/v1/auth/login", dtos.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	sess := a.sessionFrom(resp, "")
	if err := a.store.Set(sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	a.logger.Printf("[auth] signed in as %s (%s)", sess.User.Username, sess.User.Role)
	return &sess, nil
}

// Refresh trades the stored refresh token for a new access token.
func (a *Authenticator) Refresh(ctx context.Context) error {
	current, ok := a.store.Session()
	if !ok || current.Token == nil || current.Token.RefreshToken == "" {
		return fmt.Errorf("refresh: %w", ErrNoSession)
	}

	var resp dtos.LoginResponse
	if err := a.post(ctx, "/api/v1/auth/refresh", dtos.RefreshRequest{RefreshToken: current.Token.RefreshToken}, &resp); err != nil {
		return err
	}
	if resp.User.ID == 0 {
		resp.User = current.User
	}
	sess := a.sessionFrom(resp, current.Token.RefreshToken)
	if err := a.store.Set(sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	a.logger.Printf("[auth] token refreshed for %s", sess.User.Username)
	return nil
}

func (a *Authenticator) Logout() error {
	return a.store.Clear()
}

func (a *Authenticator) sessionFrom(resp dtos.LoginResponse, fallbackRefresh string) Session {
	tok := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: resp.RefreshToken,
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = fallbackRefresh
	}
	if resp.ExpiresIn > 0 {
		tok.Expiry = a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return Session{Token: tok, User: resp.User}
}

func (a *Authenticator) post(ctx context.Context, path string, body any, out *dtos.LoginResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return &client.Error{Method: http.MethodPost, Path: path, Kind: client.ErrNetwork, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &client.Error{Method: http.MethodPost, Path: path, Status: resp.StatusCode, Kind: client.ErrNetwork, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &client.Error{Method: http.MethodPost, Path: path, Status: resp.StatusCode, Kind: client.ErrUnauthorized}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &client.Error{Method: http.MethodPost, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data)), Kind: client.ErrServer}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("%s: response carried no access token", path)
	}
	return nil
}
