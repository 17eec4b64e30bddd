package apiclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"noote/client/internal/logging"
)

// TokenSource yields the current bearer token.
type TokenSource interface {
	Get(ctx context.Context) (string, bool)
}

// TokenClearer empties the token slot.
type TokenClearer interface {
	Clear(ctx context.Context) error
}

// ResetEvent is the full session reset signal raised when the backend rejects
// the session. It is distinct from in-app navigation: receivers are expected
// to drop in-memory state and show the login view from scratch. HadToken
// tells whether the rejected request carried a bearer token; a 401 without one
// did not end any session.
type ResetEvent struct {
	Method   string
	Path     string
	Status   int
	HadToken bool
	At       time.Time
}

// ResetFunc receives ResetEvent.
type ResetFunc func(ctx context.Context, evt ResetEvent)

// BearerToken attaches "Authorization: Bearer <token>" when a token is present
// and leaves the request untouched otherwise.
func BearerToken(tokens TokenSource) RequestInterceptor {
	return func(req *http.Request) error {
		token, ok := tokens.Get(req.Context())
		if !ok {
			return nil
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// RequestID tags requests with a fresh X-Request-ID unless one is set.
func RequestID() RequestInterceptor {
	return func(req *http.Request) error {
		if req.Header.Get("X-Request-ID") != "" {
			return nil
		}
		req.Header.Set("X-Request-ID", uuid.NewString())
		return nil
	}
}

// ResetOnUnauthorized clears the token and raises exactly one ResetEvent for
// every 401 outcome. The error is always passed on to the caller.
func ResetOnUnauthorized(tokens TokenClearer, reset ResetFunc, logger *logging.Logger) ResponseInterceptor {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
		if err == nil || !IsUnauthorized(err) {
			return resp, err
		}
		ctx := context.WithoutCancel(req.Context())
		if clearErr := tokens.Clear(ctx); clearErr != nil {
			logger.Errorf("clear token after 401 on %s %s: %v", req.Method, req.URL.Path, clearErr)
		}
		logger.Infof("session rejected by backend on %s %s, resetting", req.Method, req.URL.Path)
		if reset != nil {
			reset(ctx, ResetEvent{
				Method:   req.Method,
				Path:     req.URL.Path,
				Status:   http.StatusUnauthorized,
				HadToken: strings.HasPrefix(req.Header.Get("Authorization"), "Bearer "),
				At:       time.Now(),
			})
		}
		return resp, err
	}
}
