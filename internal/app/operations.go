package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"noote/client/internal/api"
	"noote/client/internal/apiclient"
	"noote/client/internal/router"
)

// Start restores the session from a stored token, if any, and shows path.
// When the backend rejects the stored token the reset to the login view is
// the final navigation and path is not shown.
func (a *Application) Start(ctx context.Context, path string) (router.Transition, error) {
	if path == "" {
		path = router.PathHome
	}
	if a.tokens.HasToken(ctx) {
		a.logger.Infof("stored token found, restoring session")
		before, _ := a.resetCount()
		a.session.FetchUser(ctx)
		if after, t := a.resetCount(); after != before {
			a.logger.Infof("stored token rejected, staying on %s", t.To.Path)
			return t, nil
		}
	}
	return a.navigator.Push(ctx, path)
}

// Login stores a fresh token, loads the user and shows the home view, in that
// order.
func (a *Application) Login(ctx context.Context, username, password string) error {
	if _, err := a.auth.Login(ctx, api.LoginRequest{Username: username, Password: password}); err != nil {
		a.logger.Errorf("login failed: %v", err)
		return err
	}
	a.session.FetchUser(ctx)
	if _, err := a.navigator.Push(ctx, router.PathHome); err != nil {
		return fmt.Errorf("navigate after login: %w", err)
	}
	a.logger.Infof("logged in as %s", username)
	return nil
}

// Register creates an account and shows the login view. It does not log in.
func (a *Application) Register(ctx context.Context, req api.RegisterRequest) (api.User, error) {
	user, err := a.auth.Register(ctx, req)
	if err != nil {
		a.logger.Errorf("register failed: %v", err)
		return api.User{}, err
	}
	if _, err := a.navigator.Push(ctx, router.PathLogin); err != nil {
		return user, fmt.Errorf("navigate after register: %w", err)
	}
	a.logger.Infof("registered %s", user.Username)
	return user, nil
}

// Logout clears the session and shows the login view.
func (a *Application) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	if _, err := a.navigator.Push(ctx, router.PathLogin); err != nil {
		return fmt.Errorf("navigate after logout: %w", err)
	}
	a.logger.Infof("logged out")
	return nil
}

// Navigate is an in-app move through the route guard.
func (a *Application) Navigate(ctx context.Context, path string) (router.Transition, error) {
	return a.navigator.Push(ctx, path)
}

// RequestContext bounds a single user action by the configured timeout.
func (a *Application) RequestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	timeout := a.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

// Action names what the user was doing when a call failed.
type Action string

const (
	ActionLogin    Action = "login"
	ActionRegister Action = "register"
	ActionLoad     Action = "load"
	ActionSave     Action = "save"
	ActionDelete   Action = "delete"
)

// FailureKind classifies failures for presentation.
type FailureKind string

const (
	FailureInvalidInput FailureKind = "invalid_input"
	FailureAuth         FailureKind = "auth"
	FailureForbidden    FailureKind = "forbidden"
	FailureNotFound     FailureKind = "not_found"
	FailureNetwork      FailureKind = "network"
	FailureServer       FailureKind = "server"
	FailureUnknown      FailureKind = "unknown"
)

// Failure is what views show to the user.
type Failure struct {
	Kind             FailureKind
	Message          string
	TechnicalMessage string
}

// FailureMessage turns an error from a user action into a message.
func FailureMessage(action Action, err error) Failure {
	failure := Failure{Kind: FailureUnknown, Message: fallbackMessage(action)}
	if err == nil {
		return failure
	}
	failure.TechnicalMessage = err.Error()

	var vErr *api.ValidationError
	if errors.As(err, &vErr) {
		failure.Kind = FailureInvalidInput
		failure.Message = fmt.Sprintf("Please check your input: %v", vErr.Err)
		return failure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		failure.Kind = FailureNetwork
		failure.Message = "The server took too long to respond"
		return failure
	}
	if errors.Is(err, router.ErrNotFound) {
		failure.Kind = FailureNotFound
		failure.Message = "Page not found"
		return failure
	}

	var cErr *apiclient.Error
	if !errors.As(err, &cErr) {
		return failure
	}
	switch cErr.Kind {
	case apiclient.ErrorKindUnauthorized:
		failure.Kind = FailureAuth
		if action == ActionLogin {
			failure.Message = "Incorrect username or password"
		} else {
			failure.Message = "Your session has expired, please log in again"
		}
	case apiclient.ErrorKindNetwork:
		failure.Kind = FailureNetwork
		failure.Message = "Cannot reach the server"
	case apiclient.ErrorKindDecode:
		failure.Kind = FailureServer
		failure.Message = "Unexpected response from the server"
	case apiclient.ErrorKindRequest:
		failure.Kind = FailureUnknown
	case apiclient.ErrorKindHTTP:
		failure.Kind, failure.Message = httpFailure(action, cErr)
	}
	return failure
}

func httpFailure(action Action, cErr *apiclient.Error) (FailureKind, string) {
	switch {
	case cErr.Status == http.StatusForbidden:
		return FailureForbidden, "You do not have access to this item"
	case cErr.Status == http.StatusNotFound:
		return FailureNotFound, "Not found"
	case cErr.Status == http.StatusBadRequest || cErr.Status == http.StatusUnprocessableEntity:
		if cErr.Detail != "" {
			return FailureInvalidInput, cErr.Detail
		}
		return FailureInvalidInput, fallbackMessage(action)
	case cErr.Status >= 500:
		return FailureServer, fmt.Sprintf("Server error (code %d)", cErr.Status)
	default:
		return FailureUnknown, fmt.Sprintf("%s (code %d)", fallbackMessage(action), cErr.Status)
	}
}

func fallbackMessage(action Action) string {
	switch action {
	case ActionLogin:
		return "Login failed"
	case ActionRegister:
		return "Registration failed"
	case ActionSave:
		return "Could not save changes"
	case ActionDelete:
		return "Could not delete"
	default:
		return "Could not load data"
	}
}
