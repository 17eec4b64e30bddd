package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func (r registerDTO) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

func (s *Server) createUser(username, email, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.storage.CreateUser(username, email, hash)
}

// handleRegister handles POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	user, err := s.createUser(req.Username, req.Email, req.Password)
	if errors.Is(err, errConflict) {
		writeError(w, http.StatusBadRequest, "Username or email already registered")
		return
	}
	if err != nil {
		s.logger.Errorf("register %s: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.logger.Infof("registered user %s", user.Username)
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// handleLogin handles POST /auth/login with an OAuth2 password form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	user, err := s.storage.UserByName(username)
	if err == nil {
		err = bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password))
	}
	if err != nil {
		s.logger.Infof("login failed for %s", username)
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token, err := s.issueToken(user.Username, time.Now())
	if err != nil {
		s.logger.Errorf("issue token for %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.logger.Infof("login ok for %s", username)
	writeJSON(w, http.StatusOK, tokenDTO{AccessToken: token, TokenType: "bearer"})
}

// handleMe handles GET /auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// issueToken signs an HS256 access token whose subject is the username.
func (s *Server) issueToken(username string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
}

// parseToken verifies the signature and expiry and returns the subject.
func (s *Server) parseToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func toUserDTO(u User) userDTO {
	return userDTO{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}
