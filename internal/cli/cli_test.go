package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noote/client/internal/app"
	"noote/client/internal/config"
	"noote/client/internal/devserver"
	"noote/client/internal/tokenstore"
)

type harness struct {
	t        *testing.T
	cfg      *config.Config
	backend  *tokenstore.MemoryBackend
	requests atomic.Int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv, err := devserver.New(&devserver.ServerConfig{
		JWTSecret: "cli-test-secret-0123456789",
		Users: []devserver.SeedUser{
			{Username: "alice", Email: "alice@example.com", Password: "secret1"},
			{Username: "bob", Email: "bob@example.com", Password: "secret2"},
		},
	}, nil)
	require.NoError(t, err)

	h := &harness{t: t, backend: tokenstore.NewMemoryBackend()}
	handler := srv.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	h.cfg = config.Default(t.TempDir())
	h.cfg.APIBaseURL = ts.URL + devserver.APIPrefix
	h.cfg.TokenBackend = config.TokenBackendMemory
	return h
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	root, e := newRoot(Options{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
		Config: h.cfg,
		App:    app.Options{TokenBackend: h.backend},
		ReadPassword: func(string) (string, error) {
			return "secret1", nil
		},
	})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	require.NoError(h.t, e.close())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (h *harness) login(username, password string) {
	h.t.Helper()
	res := h.run("", "login", username, "-p", password)
	require.NoError(h.t, res.err)
}

func createdID(t *testing.T, out string) int {
	t.Helper()
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	id, err := strconv.Atoi(fields[len(fields)-1])
	require.NoError(t, err, out)
	return id
}

func TestProtectedCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	cases := [][]string{
		{"notes", "mine"},
		{"notes", "create", "-t", "draft", "-c", "text"},
		{"notes", "delete", "1"},
		{"notes", "search", "x", "--scope", "my"},
		{"collections", "mine"},
		{"collections", "create", "reading"},
		{"collections", "add", "1", "2"},
		{"collections", "integrate", "1", "--api-key", "k"},
		{"whoami"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			res := h.run("", args...)
			require.ErrorIs(t, res.err, ErrLoginRequired)
			assert.Equal(t, "login required", res.err.Error())
		})
	}
	assert.Zero(t, h.requests.Load())
}

func TestLoginAndWhoami(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "login", "alice", "-p", "secret1")
	require.NoError(t, res.err)
	assert.Equal(t, "Logged in as alice\n", res.stdout)

	res = h.run("", "whoami")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "alice <alice@example.com>", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "token expires "), lines[1])

	res = h.run("", "logout")
	require.NoError(t, res.err)
	assert.Equal(t, "Logged out\n", res.stdout)
	_, err := h.backend.Load(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestLoginPromptsForMissingCredentials(t *testing.T) {
	h := newHarness(t)
	res := h.run("alice\n", "login")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Username: ")
	assert.Equal(t, "Logged in as alice\n", res.stdout)
}

func TestWrongPassword(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "login", "alice", "-p", "nope-nope")
	require.Error(t, res.err)
	assert.Equal(t, "Incorrect username or password", res.err.Error())
	assert.NotContains(t, res.stderr, "session expired")

	res = h.run("", "open", "/notes")
	require.NoError(t, res.err)
	assert.Equal(t, "/notes -> /notes (notes)\nguard: allowed\n", res.stdout)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "register", "-u", "carol", "-e", "carol@example.com", "-p", "secret3")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Registered carol")

	res = h.run("", "register", "-u", "carol", "-e", "other@example.com", "-p", "secret3")
	require.Error(t, res.err)

	res = h.run("", "register", "-u", "dave", "-e", "not-an-email", "-p", "secret4")
	require.Error(t, res.err)
	var cmdErr *CommandError
	require.ErrorAs(t, res.err, &cmdErr)
	assert.Equal(t, app.FailureInvalidInput, app.FailureMessage(cmdErr.Action, cmdErr.Err).Kind)
}

func TestNotesLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "secret1")

	res := h.run("", "notes", "create", "-t", "Groceries", "-c", "# Shopping\n\n- milk\n- bread")
	require.NoError(t, res.err)
	id := createdID(t, res.stdout)
	idArg := strconv.Itoa(id)

	res = h.run("", "notes", "mine")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Groceries")
	assert.Contains(t, res.stdout, "public")

	res = h.run("", "notes", "show", idArg, "--html")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "<h1")
	assert.Contains(t, res.stdout, "<li>milk</li>")

	res = h.run("", "notes", "edit", idArg, "-t", "Weekly groceries")
	require.NoError(t, res.err)

	res = h.run("", "notes", "search", "weekly")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Weekly groceries")

	res = h.run("", "notes", "delete", idArg)
	require.NoError(t, res.err)

	res = h.run("", "notes", "show", idArg)
	require.Error(t, res.err)
	assert.Equal(t, "Not found", res.err.Error())
}

func TestCreateNoteFromFile(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "secret1")

	path := filepath.Join(t.TempDir(), "todo.txt")
	require.NoError(t, os.WriteFile(path, []byte("call the plumber"), 0o600))

	res := h.run("", "notes", "create", "-f", path, "--private")
	require.NoError(t, res.err)

	res = h.run("", "notes", "mine")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "todo")
	assert.Contains(t, res.stdout, "private")
}

func TestCollectionsLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login("alice", "secret1")

	first := createdID(t, h.run("", "notes", "create", "-t", "First", "-c", "one").stdout)
	second := createdID(t, h.run("", "notes", "create", "-t", "Second", "-c", "two").stdout)

	res := h.run("", "collections", "create", "Reading", "-d", "things to read")
	require.NoError(t, res.err)
	cid := strconv.Itoa(createdID(t, res.stdout))

	for _, id := range []int{first, second} {
		res = h.run("", "collections", "add", cid, strconv.Itoa(id))
		require.NoError(t, res.err)
	}
	res = h.run("", "collections", "add", cid, strconv.Itoa(first))
	require.Error(t, res.err)

	res = h.run("", "collections", "reorder", cid, strconv.Itoa(second), strconv.Itoa(first))
	require.NoError(t, res.err)

	res = h.run("", "collections", "show", cid)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Reading (public, 2 notes, owner alice)")
	assert.Less(t, strings.Index(res.stdout, "Second"), strings.Index(res.stdout, "First"))

	res = h.run("", "collections", "integrate", cid, "--api-key", "key", "--prompt", "summarize")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "# Reading")
	assert.Contains(t, res.stdout, "> summarize")
	assert.Less(t, strings.Index(res.stdout, "## Second"), strings.Index(res.stdout, "## First"))

	res = h.run("", "collections", "remove", cid, strconv.Itoa(first))
	require.NoError(t, res.err)
	res = h.run("", "collections", "notes", cid)
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "First")

	res = h.run("", "collections", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Reading")

	res = h.run("", "collections", "delete", cid)
	require.NoError(t, res.err)
	res = h.run("", "collections", "mine")
	require.NoError(t, res.err)
	assert.Equal(t, "No collections.\n", res.stdout)
}

func TestOpenResolvesThroughGuard(t *testing.T) {
	h := newHarness(t)

	res := h.run("", "open", "/my-notes")
	require.NoError(t, res.err)
	assert.Equal(t, "/my-notes -> /login (login)\nguard: redirected\n", res.stdout)

	res = h.run("", "open", "/notes/7")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "(note-detail)")
	assert.Contains(t, res.stdout, "param id=7")

	res = h.run("", "open", "/nowhere")
	require.Error(t, res.err)
	assert.Equal(t, "Page not found", res.err.Error())
}

func TestRejectedTokenResetsSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.backend.Save(context.Background(), "not-a-valid-token"))

	res := h.run("", "notes", "mine")
	require.Error(t, res.err)
	assert.Equal(t, "Your session has expired, please log in again", res.err.Error())
	assert.Contains(t, res.stderr, "session expired, please log in again")

	_, err := h.backend.Load(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	res = h.run("", "notes", "mine")
	assert.ErrorIs(t, res.err, ErrLoginRequired)
}

func TestInvalidID(t *testing.T) {
	h := newHarness(t)
	res := h.run("", "notes", "show", "abc")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid id")
}
