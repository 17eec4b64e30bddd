package app

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"

	"noote/client/internal/api"
	"noote/client/internal/apiclient"
	"noote/client/internal/config"
	"noote/client/internal/logging"
	"noote/client/internal/router"
	"noote/client/internal/session"
	"noote/client/internal/tokenstore"
)

// Options overrides dependencies, mainly for tests.
type Options struct {
	HTTPClient   *http.Client
	TokenBackend tokenstore.Backend
	Routes       []router.Route
}

// Application wires the token store, HTTP client, services, session and
// router, and owns the session-reset path.
type Application struct {
	cfg    *config.Config
	logger *logging.Logger

	tokens      *tokenstore.Store
	client      *apiclient.Client
	auth        *api.AuthService
	notes       *api.NotesService
	collections *api.CollectionsService
	session     *session.State
	navigator   *router.Navigator
	redis       *redis.Client

	mu        sync.Mutex
	onReset   []func(apiclient.ResetEvent)
	resets    int
	lastReset router.Transition
	closeOnce sync.Once
}

// New builds the application graph. Nothing is sent over the network except
// the Redis ping when the redis token backend is selected.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts Options) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	a := &Application{cfg: cfg, logger: logger}

	backend := opts.TokenBackend
	if backend == nil {
		var err error
		backend, a.redis, err = buildTokenBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	a.tokens = tokenstore.New(backend, logger)

	client, err := apiclient.New(cfg.APIBaseURL, apiclient.Options{
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	client.UseRequest(apiclient.BearerToken(a.tokens), apiclient.RequestID())
	client.UseResponse(apiclient.ResetOnUnauthorized(a.tokens, a.resetSession, logger))
	a.client = client

	a.auth = api.NewAuthService(client, a.tokens)
	a.notes = api.NewNotesService(client)
	a.collections = api.NewCollectionsService(client)
	a.session = session.New(a.auth, logger)

	routes := opts.Routes
	if routes == nil {
		routes = router.DefaultRoutes()
	}
	table, err := router.NewTable(routes)
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	a.navigator = router.NewNavigator(table, router.NewGuard(a.tokens, logger), logger)
	return a, nil
}

func buildTokenBackend(ctx context.Context, cfg *config.Config) (tokenstore.Backend, *redis.Client, error) {
	switch cfg.TokenBackend {
	case config.TokenBackendRedis:
		client, err := tokenstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return tokenstore.NewRedisBackend(client, cfg.RedisKey), client, nil
	case config.TokenBackendMemory:
		return tokenstore.NewMemoryBackend(), nil, nil
	default:
		backend, err := tokenstore.NewFileBackend(cfg.TokenFile)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	}
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

func (a *Application) Logger() *logging.Logger {
	return a.logger
}

// Tokens is the store shared by the interceptors and the route guard.
func (a *Application) Tokens() *tokenstore.Store {
	return a.tokens
}

func (a *Application) Client() *apiclient.Client {
	return a.client
}

func (a *Application) Auth() *api.AuthService {
	return a.auth
}

func (a *Application) Notes() *api.NotesService {
	return a.notes
}

func (a *Application) Collections() *api.CollectionsService {
	return a.collections
}

func (a *Application) Session() *session.State {
	return a.session
}

func (a *Application) Navigator() *router.Navigator {
	return a.navigator
}

// TokenClaims decodes the stored token for display. ok is false without a
// token or when the token is not a JWT. Nothing here decides whether the user
// is authenticated.
func (a *Application) TokenClaims(ctx context.Context) (tokenstore.Claims, bool) {
	token, ok := a.tokens.Get(ctx)
	if !ok {
		return tokenstore.Claims{}, false
	}
	claims, err := tokenstore.Inspect(token)
	if err != nil {
		a.logger.Debugf("inspect stored token: %v", err)
		return tokenstore.Claims{}, false
	}
	return claims, true
}

// OnSessionReset registers fn to run after every full session reset, once the
// session is cleared and the login view is shown.
func (a *Application) OnSessionReset(fn func(apiclient.ResetEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onReset = append(a.onReset, fn)
}

// resetSession is the handler of the 401 reset signal. The token store has
// already been cleared by the interceptor. A rejected request that carried no
// token ended no session, so it leaves the view alone; a failed login stays on
// the login view with its own message.
func (a *Application) resetSession(ctx context.Context, evt apiclient.ResetEvent) {
	if !evt.HadToken {
		a.logger.Debugf("401 on %s %s without a token, no session to reset", evt.Method, evt.Path)
		return
	}
	a.logger.Infof("session reset after %d on %s %s", evt.Status, evt.Method, evt.Path)
	a.session.Reset()
	t, err := a.navigator.HardReset(ctx, router.PathLogin)
	if err != nil {
		a.logger.Errorf("hard navigation to login failed: %v", err)
	}
	a.mu.Lock()
	a.resets++
	a.lastReset = t
	listeners := slices.Clone(a.onReset)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(evt)
	}
}

// resetCount returns how many full resets happened so far and the transition
// of the latest one.
func (a *Application) resetCount() (int, router.Transition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets, a.lastReset
}

// Close releases the Redis connection, if any.
func (a *Application) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.closeRedis()
	})
	return err
}

func (a *Application) closeRedis() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
