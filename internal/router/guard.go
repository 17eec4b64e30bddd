package router

import (
	"context"

	"noote/client/internal/logging"
)

// TokenChecker reports whether a session token is stored.
type TokenChecker interface {
	HasToken(ctx context.Context) bool
}

// Decision is the guard's verdict for one navigation.
type Decision string

const (
	Evaluating Decision = "evaluating"
	Allowed    Decision = "allowed"
	Redirected Decision = "redirected"
)

// Outcome is the result of evaluating one navigation.
type Outcome struct {
	Decision  Decision
	Requested string
	Resolved  string
	Route     Route
}

// Guard protects routes that require a signed-in user. It checks token
// presence only and never calls the backend; an invalid token is caught by
// the first API call that gets a 401.
type Guard struct {
	tokens    TokenChecker
	loginPath string
	logger    *logging.Logger
}

func NewGuard(tokens TokenChecker, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Guard{tokens: tokens, loginPath: PathLogin, logger: logger}
}

// Evaluate decides whether m may be shown. A protected route without a
// token redirects to the login path and the requested path is dropped.
func (g *Guard) Evaluate(ctx context.Context, m Match) Outcome {
	out := Outcome{Decision: Evaluating, Requested: m.Path, Route: m.Route}
	if m.Route.RequiresAuth && !g.tokens.HasToken(ctx) {
		g.logger.Debugf("guard: %s requires login, redirecting to %s", m.Path, g.loginPath)
		out.Decision = Redirected
		out.Resolved = g.loginPath
		return out
	}
	out.Decision = Allowed
	out.Resolved = m.Path
	return out
}
