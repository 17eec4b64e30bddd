// Package tokenstore keeps the bearer token in a single persistent slot.
//
// Presence of a token is the only authentication predicate the client uses
// locally; the token itself is never validated here.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"noote/client/internal/logging"
)

// Key is the fixed slot name the token is stored under.
const Key = "token"

// ErrNotFound is returned by backends when the slot is empty.
var ErrNotFound = errors.New("tokenstore: token not found")

// Backend persists the token slot.
type Backend interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Store is the token slot shared by the HTTP client, the auth service and the
// route guard.
type Store struct {
	backend Backend
	logger  *logging.Logger
	mu      sync.Mutex
}

// New wraps backend. A nil logger discards output.
func New(backend Backend, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{backend: backend, logger: logger}
}

// Set overwrites the slot.
func (s *Store) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.logger.Debugf("token stored (%s)", logging.MaskToken(token))
	return nil
}

// Get returns the token, or false when the slot is empty or unreadable.
func (s *Store) Get(ctx context.Context) (string, bool) {
	token, err := s.backend.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Errorf("read token: %v", err)
		}
		return "", false
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// Clear removes the slot. Clearing an empty slot succeeds.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete token: %w", err)
	}
	s.logger.Debugf("token cleared")
	return nil
}

// HasToken reports whether Get would return a token.
func (s *Store) HasToken(ctx context.Context) bool {
	_, ok := s.Get(ctx)
	return ok
}

// MemoryBackend keeps the slot in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", ErrNotFound
	}
	return m.token, nil
}

func (m *MemoryBackend) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
	return nil
}

func (m *MemoryBackend) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}
