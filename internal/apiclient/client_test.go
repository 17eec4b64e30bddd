package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noote/client/internal/tokenstore"
)

type recorded struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	RequestID     string
	Body          string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Body:          string(body),
	})
	status, payload := f.status, f.body
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeBackend) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type resetRecorder struct {
	mu     sync.Mutex
	events []ResetEvent
}

func (r *resetRecorder) reset(_ context.Context, evt ResetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *resetRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestClient(t *testing.T) (*Client, *fakeBackend, *tokenstore.Store, *resetRecorder) {
	t.Helper()
	backend := &fakeBackend{body: `{}`}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL+"/api/v1/", Options{})
	require.NoError(t, err)
	tokens := tokenstore.New(tokenstore.NewMemoryBackend(), nil)
	resets := &resetRecorder{}
	client.UseRequest(BearerToken(tokens), RequestID())
	client.UseResponse(ResetOnUnauthorized(tokens, resets.reset, nil))
	return client, backend, tokens, resets
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New("", Options{})
	assert.Error(t, err)
	_, err = New("/api/v1", Options{})
	assert.Error(t, err)

	client, err := New("http://localhost:8000/api/v1/", Options{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1", client.BaseURL())
}

func TestBearerHeaderFollowsTokenPresence(t *testing.T) {
	ctx := context.Background()
	client, backend, tokens, _ := newTestClient(t)

	require.NoError(t, client.Get(ctx, "anon", "/notes/", nil, nil))
	req := backend.last(t)
	assert.Empty(t, req.Authorization)
	assert.Equal(t, "/api/v1/notes/", req.Path)

	require.NoError(t, tokens.Set(ctx, "abc"))
	require.NoError(t, client.Get(ctx, "authed", "/notes/my", nil, nil))
	assert.Equal(t, "Bearer abc", backend.last(t).Authorization)

	require.NoError(t, tokens.Clear(ctx))
	require.NoError(t, client.Get(ctx, "anon again", "/notes/", nil, nil))
	assert.Empty(t, backend.last(t).Authorization)
}

func TestDefaultHeadersAndBodies(t *testing.T) {
	ctx := context.Background()
	client, backend, _, _ := newTestClient(t)

	require.NoError(t, client.Post(ctx, "create", "/notes/", map[string]string{"title": "t"}, nil))
	req := backend.last(t)
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{"title":"t"}`, req.Body)
	assert.NotEmpty(t, req.RequestID)

	form := url.Values{"username": {"alice"}, "password": {"secret"}}
	require.NoError(t, client.PostForm(ctx, "login", "/auth/login", form, nil))
	req = backend.last(t)
	assert.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
	assert.Equal(t, "password=secret&username=alice", req.Body)

	query := url.Values{"q": {"go lang"}, "scope": {"my"}}
	require.NoError(t, client.Get(ctx, "search", "/notes/search", query, nil))
	assert.Equal(t, "q=go+lang&scope=my", backend.last(t).RawQuery)
}

func TestCallerRequestIDIsKept(t *testing.T) {
	client, backend, _, _ := newTestClient(t)
	err := client.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/notes/",
		Header: http.Header{"X-Request-Id": {"fixed"}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", backend.last(t).RequestID)
}

func TestDecodesSuccessfulBody(t *testing.T) {
	client, backend, _, _ := newTestClient(t)
	backend.respond(http.StatusOK, `{"id": 7, "title": "hello"}`)

	var out struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, client.Get(context.Background(), "get", "/notes/7", nil, &out))
	assert.Equal(t, 7, out.ID)
	assert.Equal(t, "hello", out.Title)
}

func TestNoContentAndEmptyBody(t *testing.T) {
	client, backend, _, _ := newTestClient(t)
	backend.respond(http.StatusNoContent, "")
	var out map[string]any
	require.NoError(t, client.Get(context.Background(), "get", "/x", nil, &out))
	require.NoError(t, client.Delete(context.Background(), "delete", "/notes/1"))
}

func TestDecodeFailure(t *testing.T) {
	client, backend, _, _ := newTestClient(t)
	backend.respond(http.StatusOK, `not json`)
	var out map[string]any
	err := client.Get(context.Background(), "get", "/notes/1", nil, &out)
	require.Error(t, err)
	assert.Equal(t, ErrorKindDecode, KindOf(err))
}

func TestUnauthorizedClearsTokenAndResetsOnce(t *testing.T) {
	ctx := context.Background()
	client, backend, tokens, resets := newTestClient(t)
	require.NoError(t, tokens.Set(ctx, "abc"))
	backend.respond(http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

	err := client.Get(ctx, "my notes", "/notes/my", nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, ErrorKindUnauthorized, KindOf(err))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Could not validate credentials", apiErr.Detail)
	assert.Equal(t, "/notes/my", apiErr.Path)

	assert.False(t, tokens.HasToken(ctx))
	require.Equal(t, 1, resets.len())
	assert.Equal(t, "/api/v1/notes/my", resets.events[0].Path)
	assert.Equal(t, http.MethodGet, resets.events[0].Method)
	assert.True(t, resets.events[0].HadToken)

	require.Error(t, client.Get(ctx, "again", "/notes/my", nil, nil))
	require.Equal(t, 2, resets.len())
	assert.False(t, resets.events[1].HadToken)
}

func TestOtherErrorsPropagateWithoutReset(t *testing.T) {
	ctx := context.Background()
	client, backend, tokens, resets := newTestClient(t)
	require.NoError(t, tokens.Set(ctx, "abc"))

	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		backend.respond(status, `{"detail":"nope"}`)
		err := client.Get(ctx, "get", "/notes/1", nil, nil)
		require.Error(t, err)
		assert.Equal(t, status, StatusOf(err))
		assert.Equal(t, ErrorKindHTTP, KindOf(err))
	}
	assert.True(t, tokens.HasToken(ctx))
	assert.Zero(t, resets.len())
}

func TestNetworkFailure(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := New(baseURL, Options{})
	require.NoError(t, err)
	resets := &resetRecorder{}
	tokens := tokenstore.New(tokenstore.NewMemoryBackend(), nil)
	require.NoError(t, tokens.Set(ctx, "abc"))
	client.UseResponse(ResetOnUnauthorized(tokens, resets.reset, nil))

	err = client.Get(ctx, "get", "/notes/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, ErrorKindNetwork, KindOf(err))
	assert.Zero(t, StatusOf(err))
	assert.True(t, tokens.HasToken(ctx))
	assert.Zero(t, resets.len())
}

func TestRequestInterceptorErrorFailsClosed(t *testing.T) {
	client, backend, _, _ := newTestClient(t)
	boom := errors.New("token store offline")
	client.UseRequest(func(*http.Request) error { return boom })

	err := client.Get(context.Background(), "get", "/notes/", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorKindRequest, KindOf(err))
	assert.Zero(t, backend.count())
}

func TestResponseInterceptorsRunInOrder(t *testing.T) {
	client, _, _, _ := newTestClient(t)
	var order []string
	client.UseResponse(
		func(_ *http.Request, resp *http.Response, err error) (*http.Response, error) {
			order = append(order, "first")
			return resp, err
		},
		func(_ *http.Request, resp *http.Response, err error) (*http.Response, error) {
			order = append(order, "second")
			return resp, err
		},
	)
	require.NoError(t, client.Get(context.Background(), "get", "/notes/", nil, nil))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestParseDetail(t *testing.T) {
	assert.Equal(t, "bad", parseDetail([]byte(`{"detail":"bad"}`)))
	assert.Equal(t, "field required; too short", parseDetail([]byte(`{"detail":[{"msg":"field required"},{"msg":"too short"}]}`)))
	assert.Equal(t, "Auth Failed", parseDetail([]byte(`"Auth Failed"`)))
	assert.Equal(t, "plain text", parseDetail([]byte("plain text")))
	assert.Empty(t, parseDetail(nil))

	raw, _ := json.Marshal(map[string]any{"detail": map[string]int{"code": 3}})
	assert.Equal(t, `{"code":3}`, parseDetail(raw))
}
