// Package api wraps the backend REST endpoints. Every call goes through the
// shared apiclient.Client, so authentication and session reset are handled
// there and not here.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"noote/client/internal/apiclient"
	"noote/client/internal/tokenstore"
)

// AuthService covers /auth and owns writes to the token store.
type AuthService struct {
	client *apiclient.Client
	tokens *tokenstore.Store
}

func NewAuthService(client *apiclient.Client, tokens *tokenstore.Store) *AuthService {
	return &AuthService{client: client, tokens: tokens}
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (User, error) {
	const op = "Register"
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return User{}, invalid(op, err)
	}
	var user User
	if err := s.client.Post(ctx, op, "/auth/register", req, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login exchanges credentials for an access token and stores it.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	const op = "Login"
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return TokenResponse{}, invalid(op, err)
	}
	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)
	var resp TokenResponse
	if err := s.client.PostForm(ctx, op, "/auth/login", form, &resp); err != nil {
		return TokenResponse{}, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return TokenResponse{}, &apiclient.Error{Op: op, Kind: apiclient.ErrorKindDecode, Err: errors.New("empty access token")}
	}
	if err := s.tokens.Set(ctx, resp.AccessToken); err != nil {
		return TokenResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

// Me returns the profile of the token owner.
func (s *AuthService) Me(ctx context.Context) (User, error) {
	var user User
	if err := s.client.Get(ctx, "Me", "/auth/me", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Logout forgets the stored token. The backend keeps no session to end.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.tokens.Clear(ctx)
}

// IsAuthenticated reports token presence only.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	return s.tokens.HasToken(ctx)
}

// ValidationError reports input rejected before any request was sent.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err) }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(op string, err error) error {
	return &ValidationError{Op: op, Err: err}
}
