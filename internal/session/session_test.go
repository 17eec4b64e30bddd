package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noote/client/internal/api"
	"noote/client/internal/apiclient"
)

type fakeAuth struct {
	mu        sync.Mutex
	user      api.User
	meErr     error
	logoutErr error
	logouts   int
}

func (f *fakeAuth) Me(context.Context) (api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.meErr
}

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func TestFetchUserSuccess(t *testing.T) {
	auth := &fakeAuth{user: api.User{ID: 1, Username: "alice"}}
	state := New(auth, nil)
	assert.False(t, state.IsLoggedIn())

	state.FetchUser(context.Background())
	require.True(t, state.IsLoggedIn())
	user, ok := state.User()
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
}

func TestFetchUserFailureLogsOut(t *testing.T) {
	failures := []error{
		&apiclient.Error{Kind: apiclient.ErrorKindUnauthorized, Status: 401},
		&apiclient.Error{Kind: apiclient.ErrorKindNetwork, Err: errors.New("connection refused")},
		&apiclient.Error{Kind: apiclient.ErrorKindDecode, Err: errors.New("bad json")},
	}
	for _, failure := range failures {
		auth := &fakeAuth{user: api.User{ID: 1, Username: "alice"}}
		state := New(auth, nil)
		state.FetchUser(context.Background())
		require.True(t, state.IsLoggedIn())

		auth.meErr = failure
		state.FetchUser(context.Background())
		snap := state.Snapshot()
		assert.False(t, snap.IsLoggedIn)
		assert.Nil(t, snap.User)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	auth := &fakeAuth{user: api.User{ID: 1, Username: "alice"}}
	state := New(auth, nil)
	state.FetchUser(context.Background())

	state.Logout(context.Background())
	state.Logout(context.Background())
	assert.False(t, state.IsLoggedIn())
	assert.Equal(t, 2, auth.logouts)

	auth.logoutErr = errors.New("disk full")
	state.FetchUser(context.Background())
	state.Logout(context.Background())
	assert.False(t, state.IsLoggedIn())
}

func TestResetKeepsToken(t *testing.T) {
	auth := &fakeAuth{user: api.User{ID: 1, Username: "alice"}}
	state := New(auth, nil)
	state.FetchUser(context.Background())
	state.Reset()
	assert.False(t, state.IsLoggedIn())
	assert.Zero(t, auth.logouts)
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	auth := &fakeAuth{user: api.User{ID: 1, Username: "alice"}}
	state := New(auth, nil)

	var first, second []bool
	unsubscribe := state.Subscribe(func(s Snapshot) { first = append(first, s.IsLoggedIn) })
	state.Subscribe(func(s Snapshot) {
		second = append(second, s.IsLoggedIn)
		// Reading from inside an observer must not deadlock.
		_ = state.IsLoggedIn()
	})

	state.FetchUser(context.Background())
	state.Logout(context.Background())
	unsubscribe()
	state.FetchUser(context.Background())

	assert.Equal(t, []bool{true, false}, first)
	assert.Equal(t, []bool{true, false, true}, second)
}

func TestSnapshotIsACopy(t *testing.T) {
	auth := &fakeAuth{user: api.User{ID: 1, Username: "alice"}}
	state := New(auth, nil)
	state.FetchUser(context.Background())

	snap := state.Snapshot()
	snap.User.Username = "mallory"
	user, _ := state.User()
	assert.Equal(t, "alice", user.Username)
}
