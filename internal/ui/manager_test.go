package ui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noote/client/internal/app"
	"noote/client/internal/config"
	"noote/client/internal/devserver"
	"noote/client/internal/logging"
	"noote/client/internal/router"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	srv, err := devserver.New(&devserver.ServerConfig{
		JWTSecret: "ui-test-secret-0123456789",
		Users:     []devserver.SeedUser{{Username: "alice", Email: "alice@example.com", Password: "secret1"}},
	}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default(t.TempDir())
	cfg.APIBaseURL = ts.URL + devserver.APIPrefix
	cfg.TokenBackend = config.TokenBackendMemory
	application, err := app.New(context.Background(), cfg, logging.Discard(), app.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	m, err := NewManager(Options{App: application, Fyne: test.NewTempApp(t)})
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)
	return m
}

type loginControls struct {
	username *widget.Entry
	password *widget.Entry
	submit   *widget.Button
	status   *widget.Label
}

func findLoginControls(t *testing.T, view fyne.CanvasObject) loginControls {
	t.Helper()
	box, ok := view.(*fyne.Container)
	require.True(t, ok, "login view is %T", view)
	require.Len(t, box.Objects, 4)
	form, ok := box.Objects[1].(*widget.Form)
	require.True(t, ok)
	require.Len(t, form.Items, 2)
	buttons, ok := box.Objects[2].(*fyne.Container)
	require.True(t, ok)

	var c loginControls
	c.username, ok = form.Items[0].Widget.(*widget.Entry)
	require.True(t, ok)
	c.password, ok = form.Items[1].Widget.(*widget.Entry)
	require.True(t, ok)
	c.submit, ok = buttons.Objects[0].(*widget.Button)
	require.True(t, ok)
	c.status, ok = box.Objects[3].(*widget.Label)
	require.True(t, ok)
	return c
}

func TestWrongPasswordStaysOnLoginForm(t *testing.T) {
	m := newTestManager(t)
	_, err := m.app.Start(context.Background(), router.PathLogin)
	require.NoError(t, err)
	view := m.body.Objects[0]
	login := findLoginControls(t, view)

	login.username.SetText("alice")
	login.password.SetText("nope")
	test.Tap(login.submit)
	require.True(t, m.WaitAsync(5*time.Second))

	assert.Equal(t, "Incorrect username or password", login.status.Text)
	assert.Same(t, view, m.body.Objects[0])
	assert.Empty(t, m.win.Canvas().Overlays().List())
	assert.Equal(t, "Not signed in", m.userLabel.Text)
	assert.Equal(t, router.PathLogin, m.app.Navigator().Current().Path)
}

func TestLoginShowsTokenExpiry(t *testing.T) {
	m := newTestManager(t)
	_, err := m.app.Start(context.Background(), router.PathLogin)
	require.NoError(t, err)
	login := findLoginControls(t, m.body.Objects[0])

	login.username.SetText("alice")
	login.password.SetText("secret1")
	test.Tap(login.submit)
	require.True(t, m.WaitAsync(5*time.Second))

	assert.True(t, strings.HasPrefix(m.userLabel.Text, "Signed in as alice (token expires "), m.userLabel.Text)
	assert.Equal(t, router.PathHome, m.app.Navigator().Current().Path)
	assert.Equal(t, "Noote - Home", m.win.Title())
}

func TestRejectedTokenShowsLoginAndNotice(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.app.Tokens().Set(ctx, "stale-token"))

	_, err := m.app.Start(ctx, "/notes")
	require.NoError(t, err)

	assert.Equal(t, "Noote - Log in", m.win.Title())
	assert.NotEmpty(t, m.win.Canvas().Overlays().List())
	assert.Equal(t, "Not signed in", m.userLabel.Text)
	findLoginControls(t, m.body.Objects[0])
}
