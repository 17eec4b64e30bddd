package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noote/client/internal/tokenstore"
)

func newNavigator(t *testing.T) (*Navigator, *tokenstore.Store) {
	t.Helper()
	tokens := tokenstore.New(tokenstore.NewMemoryBackend(), nil)
	table, err := NewTable(DefaultRoutes())
	require.NoError(t, err)
	return NewNavigator(table, NewGuard(tokens, nil), nil), tokens
}

func TestTableMatch(t *testing.T) {
	table := MustTable(DefaultRoutes())

	cases := map[string]string{
		"/":                   "home",
		"/login":              "login",
		"/notes":              "notes",
		"/notes/":             "notes",
		"/notes/42":           "note-detail",
		"/collections/public": "public-collections",
		"/collections/7?x=1":  "collection-detail",
		"/my-collections":     "my-collections",
	}
	for path, name := range cases {
		m, err := table.Match(path)
		require.NoError(t, err, path)
		assert.Equal(t, name, m.Route.Name, path)
	}

	m, err := table.Match("/notes/42")
	require.NoError(t, err)
	assert.Equal(t, "42", m.Params["id"])

	_, err = table.Match("/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Route{{Name: "a", Path: "/a"}, {Name: "a", Path: "/b"}})
	assert.Error(t, err)
	_, err = NewTable([]Route{{Name: "a", Path: "a"}})
	assert.Error(t, err)
}

func TestGuardDecision(t *testing.T) {
	ctx := context.Background()
	tokens := tokenstore.New(tokenstore.NewMemoryBackend(), nil)
	guard := NewGuard(tokens, nil)
	table := MustTable(DefaultRoutes())

	for _, route := range table.Routes() {
		m := Match{Route: route, Path: route.Path}
		out := guard.Evaluate(ctx, m)
		if route.RequiresAuth {
			assert.Equal(t, Redirected, out.Decision, route.Name)
			assert.Equal(t, PathLogin, out.Resolved)
		} else {
			assert.Equal(t, Allowed, out.Decision, route.Name)
			assert.Equal(t, route.Path, out.Resolved)
		}
	}

	require.NoError(t, tokens.Set(ctx, "any-token"))
	for _, route := range table.Routes() {
		out := guard.Evaluate(ctx, Match{Route: route, Path: route.Path})
		assert.Equal(t, Allowed, out.Decision, route.Name)
	}
}

func TestPushRedirectsProtectedRoutes(t *testing.T) {
	ctx := context.Background()
	nav, tokens := newNavigator(t)

	tr, err := nav.Push(ctx, "/my-notes")
	require.NoError(t, err)
	assert.Equal(t, Redirected, tr.Outcome.Decision)
	assert.Equal(t, "/my-notes", tr.Outcome.Requested)
	assert.Equal(t, PathLogin, nav.Current().Path)
	assert.Equal(t, "login", nav.Current().Route.Name)

	require.NoError(t, tokens.Set(ctx, "abc"))
	tr, err = nav.Push(ctx, "/my-notes")
	require.NoError(t, err)
	assert.Equal(t, Allowed, tr.Outcome.Decision)
	assert.Equal(t, "/my-notes", nav.Current().Path)
	assert.False(t, tr.Hard)
}

func TestUnknownPathKeepsLocation(t *testing.T) {
	ctx := context.Background()
	nav, _ := newNavigator(t)
	_, err := nav.Push(ctx, "/notes")
	require.NoError(t, err)

	_, err = nav.Push(ctx, "/does-not-exist")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "/notes", nav.Current().Path)
}

func TestBackReappliesGuard(t *testing.T) {
	ctx := context.Background()
	nav, tokens := newNavigator(t)
	require.NoError(t, tokens.Set(ctx, "abc"))

	_, err := nav.Push(ctx, "/my-notes")
	require.NoError(t, err)
	_, err = nav.Push(ctx, "/notes/3")
	require.NoError(t, err)
	assert.Equal(t, "3", nav.Current().Params["id"])

	require.NoError(t, tokens.Clear(ctx))
	tr, err := nav.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, Redirected, tr.Outcome.Decision)
	assert.Equal(t, PathLogin, nav.Current().Path)

	_, err = nav.Back(ctx)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestHardResetDiscardsHistory(t *testing.T) {
	ctx := context.Background()
	nav, tokens := newNavigator(t)
	require.NoError(t, tokens.Set(ctx, "abc"))

	var seen []Transition
	nav.OnTransition(func(tr Transition) { seen = append(seen, tr) })

	_, err := nav.Push(ctx, "/")
	require.NoError(t, err)
	_, err = nav.Push(ctx, "/my-collections")
	require.NoError(t, err)
	require.True(t, nav.CanGoBack())

	require.NoError(t, tokens.Clear(ctx))
	tr, err := nav.HardReset(ctx, PathLogin)
	require.NoError(t, err)
	assert.True(t, tr.Hard)
	assert.Equal(t, "/my-collections", tr.From.Path)
	assert.Equal(t, PathLogin, nav.Current().Path)
	assert.False(t, nav.CanGoBack())

	// Resetting while already on the login view re-renders it.
	tr, err = nav.HardReset(ctx, PathLogin)
	require.NoError(t, err)
	assert.True(t, tr.Hard)
	assert.Equal(t, PathLogin, tr.From.Path)
	assert.False(t, nav.CanGoBack())

	require.Len(t, seen, 4)
	assert.False(t, seen[1].Hard)
	assert.True(t, seen[2].Hard)
	assert.True(t, seen[3].Hard)
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	nav, _ := newNavigator(t)
	calls := 0
	unsubscribe := nav.OnTransition(func(Transition) { calls++ })
	_, err := nav.Push(ctx, "/")
	require.NoError(t, err)
	unsubscribe()
	_, err = nav.Push(ctx, "/notes")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "/", Clean(""))
	assert.Equal(t, "/", Clean("/"))
	assert.Equal(t, "/notes", Clean("notes/"))
	assert.Equal(t, "/notes/1", Clean("/notes/1?tab=raw#top"))
}
