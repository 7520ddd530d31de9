package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds each request unless WithTimeout overrides it.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of a failed response is kept in Error.Body.
const maxErrorBody = 512

// ResponseType selects how a response body is decoded.
type ResponseType int

const (
	JSON ResponseType = iota
	Binary
)

// Refresher obtains a fresh token after the backend rejected the current one.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Request is one backend call. Path is relative to the client's base URL,
// e.g. "/api/v1/jobs".
type Request struct {
	Method   string
	Path     string
	Body     any
	Response ResponseType
	// RetryOnRefresh enables a single refresh-and-retry on 401/403.
	RetryOnRefresh bool
}

// Blob is a binary response body.
type Blob struct {
	Data        []byte
	ContentType string
}

// Client performs bearer-authenticated requests against the backend.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    oauth2.TokenSource
	refresher Refresher
	timeout   time.Duration
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRefresher sets what Do calls on 401/403 for requests with
// RetryOnRefresh.
func WithRefresher(r Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

// WithLogger sets the logger for token refresh attempts.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client. tokens may be nil, in which case every call fails
// with ErrUnauthenticated.
func New(baseURL string, tokens oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		timeout: DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends req and returns the raw response body on a 2xx status.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, string, error) {
	body, contentType, err := c.do(ctx, req)
	if err == nil || !req.RetryOnRefresh || c.refresher == nil || !errors.Is(err, ErrUnauthorized) {
		return body, contentType, err
	}

	c.logger.Printf("[client] %s %s rejected, refreshing token once", req.Method, req.Path)
	if rerr := c.refresher.Refresh(ctx); rerr != nil {
		c.logger.Printf("[client] token refresh failed: %v", rerr)
		return nil, "", err
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, string, error) {
	fail := func(kind error, status int, body string, cause error) error {
		return &Error{Method: req.Method, Path: req.Path, Status: status, Body: body, Kind: kind, Cause: cause}
	}

	tok, err := c.token()
	if err != nil {
		return nil, "", fail(ErrUnauthenticated, 0, "", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, reader)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	tok.SetAuthHeader(httpReq)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Response == Binary {
		httpReq.Header.Set("Accept", "application/octet-stream, image/*, application/pdf")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", fail(ErrNetwork, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fail(ErrNetwork, resp.StatusCode, "", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, "", fail(ErrUnauthorized, resp.StatusCode, truncate(data), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", fail(ErrServer, resp.StatusCode, truncate(data), nil)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) token() (*oauth2.Token, error) {
	if c.tokens == nil {
		return nil, errors.New("no token source")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New("empty token")
	}
	return tok, nil
}

// GetJSON fetches path and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.SendJSON(ctx, http.MethodGet, path, nil, out)
}

// SendJSON sends body (may be nil) and decodes the response into out
// (may be nil).
func (c *Client) SendJSON(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, Request{Method: method, Path: path, Body: body}, out)
}

// SendJSONWithRefresh is SendJSON with a single refresh-and-retry on 401/403.
func (c *Client) SendJSONWithRefresh(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, Request{Method: method, Path: path, Body: body, RetryOnRefresh: true}, out)
}

func (c *Client) send(ctx context.Context, req Request, out any) error {
	data, _, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

// GetBlob fetches path as a binary payload.
func (c *Client) GetBlob(ctx context.Context, path string) (*Blob, error) {
	data, contentType, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Response: Binary})
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Blob{Data: data, ContentType: contentType}, nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.SendJSON(ctx, http.MethodDelete, path, nil, nil)
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
