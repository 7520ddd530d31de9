package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"github.com/justsurfingit/talent-dashboard/internal/models"
)

var ErrNoSession = errors.New("no active session")

// Session is the signed-in user's bearer token and profile.
type Session struct {
	Token *oauth2.Token `json:"token"`
	User  models.User   `json:"user"`
}

// Store holds the process-wide session. It is safe for concurrent use and
// satisfies oauth2.TokenSource, so it can be handed straight to the API
// client. When path is set, the session is persisted there.
type Store struct {
	path string

	mu      sync.RWMutex
	session *Session

	saveMu sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Token returns the current bearer token, or ErrNoSession.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.Token == nil {
		return nil, ErrNoSession
	}
	tok := *s.session.Token
	return &tok, nil
}

func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

func (s *Store) User() (models.User, bool) {
	sess, ok := s.Session()
	return sess.User, ok
}

// Set replaces the session and persists it.
func (s *Store) Set(sess Session) error {
	s.mu.Lock()
	s.session = &sess
	s.mu.Unlock()
	return s.save(sess)
}

// Clear drops the session and removes the session file.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Load restores a previously saved session. A missing file yields
// ErrNoSession.
func (s *Store) Load() error {
	if s.path == "" {
		return ErrNoSession
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoSession
		}
		return err
	}
	defer f.Close()

	var sess Session
	if err := json.NewDecoder(f).Decode(&sess); err != nil {
		return fmt.Errorf("decode session file: %w", err)
	}
	if sess.Token == nil || sess.Token.AccessToken == "" {
		return ErrNoSession
	}

	s.mu.Lock()
	s.session = &sess
	s.mu.Unlock()
	return nil
}

// save writes sess next to the session file and renames it into place, so
// a failed write leaves the previous file intact.
func (s *Store) save(sess Session) (err error) {
	if s.path == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if err := json.NewEncoder(f).Encode(sess); err != nil {
		_ = f.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(f.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
