package devserver

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

func userFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKey{}).(User)
	return user, ok
}

// identify resolves the bearer token, if any, into the request user. A missing
// or invalid token leaves the request anonymous; requireUser decides whether
// that is acceptable.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			s.logger.Debugf("malformed Authorization header on %s", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		username, err := s.parseToken(token)
		if err != nil {
			s.logger.Debugf("rejected token on %s: %v", r.URL.Path, err)
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.storage.UserByName(username)
		if err != nil {
			s.logger.Debugf("token subject %s is unknown", username)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, user)))
	})
}

// requireUser rejects anonymous requests with 401.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userFromContext(r.Context()); !ok {
			unauthorized(w)
			return
		}
		next(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "Could not validate credentials")
}
