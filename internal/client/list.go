package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// DecodeList accepts either a bare JSON array or a paged envelope
// {"content": [...], ...}; both shapes are served by the backend.
func DecodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Content == nil {
		return nil, errors.New("list payload is neither an array nor an envelope with content")
	}
	return DecodeList[T](envelope.Content)
}

// GetList fetches a collection endpoint and unwraps it.
func GetList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	return getList[T](ctx, c, Request{Method: http.MethodGet, Path: path})
}

// GetListWithRefresh is GetList with a single refresh-and-retry on 401/403.
func GetListWithRefresh[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	return getList[T](ctx, c, Request{Method: http.MethodGet, Path: path, RetryOnRefresh: true})
}

func getList[T any](ctx context.Context, c *Client, req Request) ([]T, error) {
	data, _, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[T](data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.Path, err)
	}
	return items, nil
}
