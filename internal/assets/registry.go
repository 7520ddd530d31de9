package assets

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry holds binary content behind opaque local URLs, the way a browser
// holds blobs behind object URLs. A URL resolves until it is revoked.
type Registry struct {
	prefix string

	mu    sync.RWMutex
	blobs map[string]blob
}

type blob struct {
	data        []byte
	contentType string
}

// NewRegistry creates a registry whose URLs start with prefix, e.g.
// "/api/v1/blobs/".
func NewRegistry(prefix string) *Registry {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Registry{prefix: prefix, blobs: make(map[string]blob)}
}

func (r *Registry) Mint(data []byte, contentType string) (string, error) {
	id := uuid.NewString()
	r.mu.Lock()
	r.blobs[id] = blob{data: data, contentType: contentType}
	r.mu.Unlock()
	return r.prefix + id, nil
}

// Revoke drops the content behind url. Unknown URLs are ignored.
func (r *Registry) Revoke(url string) {
	id, ok := strings.CutPrefix(url, r.prefix)
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.blobs, id)
	r.mu.Unlock()
}

// Resolve returns the content minted under id.
func (r *Registry) Resolve(id string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[id]
	return b.data, b.contentType, ok
}

// Live is the number of unrevoked URLs.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
