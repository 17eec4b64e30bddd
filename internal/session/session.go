// Package session holds the signed-in user for the lifetime of the app.
package session

import (
	"context"
	"sync"

	"noote/client/internal/api"
	"noote/client/internal/logging"
)

// Authenticator is the part of the auth service the session depends on.
type Authenticator interface {
	Me(ctx context.Context) (api.User, error)
	Logout(ctx context.Context) error
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	User       *api.User
	IsLoggedIn bool
}

// State is the shared session context. IsLoggedIn implies User is set.
type State struct {
	auth   Authenticator
	logger *logging.Logger

	mu        sync.Mutex
	user      *api.User
	observers map[int]func(Snapshot)
	nextID    int
}

// New creates an empty, logged-out session.
func New(auth Authenticator, logger *logging.Logger) *State {
	if logger == nil {
		logger = logging.Discard()
	}
	return &State{
		auth:      auth,
		logger:    logger,
		observers: make(map[int]func(Snapshot)),
	}
}

// FetchUser loads the current user. Any failure leaves the session logged
// out; the cause is logged, not returned.
func (s *State) FetchUser(ctx context.Context) {
	user, err := s.auth.Me(ctx)
	if err != nil {
		s.logger.Infof("fetch current user failed: %v", err)
		s.set(nil)
		return
	}
	s.logger.Debugf("session user is %s", user.Username)
	s.set(&user)
}

// Logout clears the stored token and the in-memory user. It does not
// navigate.
func (s *State) Logout(ctx context.Context) {
	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Errorf("clear token on logout: %v", err)
	}
	s.set(nil)
}

// Reset drops the in-memory user without touching the token store.
func (s *State) Reset() {
	s.set(nil)
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) User() (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

func (s *State) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Subscribe registers fn to receive a snapshot after every mutation and
// returns a function that removes it.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *State) set(user *api.User) {
	s.mu.Lock()
	if user != nil {
		copied := *user
		user = &copied
	}
	s.user = user
	snap := s.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (s *State) snapshotLocked() Snapshot {
	if s.user == nil {
		return Snapshot{}
	}
	copied := *s.user
	return Snapshot{User: &copied, IsLoggedIn: true}
}
