// Package devserver is a local stand-in for the notes backend. It serves the
// same /api/v1 surface from memory so the client can be exercised end to end.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"noote/client/internal/logging"
)

// APIPrefix is the path every endpoint is mounted under.
const APIPrefix = "/api/v1"

// Server holds the dev server state.
type Server struct {
	config  *ServerConfig
	storage *Storage
	logger  *logging.Logger
	router  *mux.Router
}

// New creates a server with the configured seed users and notes.
func New(config *ServerConfig, logger *logging.Logger) (*Server, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		config:  config,
		storage: NewStorage(),
		logger:  logger,
	}
	for _, seed := range config.Users {
		if _, err := s.createUser(seed.Username, seed.Email, seed.Password); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
	}
	if config.SeedNotesDir != "" {
		if len(config.Users) == 0 {
			return nil, errors.New("seed_notes_dir requires at least one seed user")
		}
		notes, err := LoadSeedNotes(config.SeedNotesDir)
		if err != nil {
			return nil, fmt.Errorf("load seed notes: %w", err)
		}
		if err := s.seedNotes(config.Users[0].Username, notes); err != nil {
			return nil, err
		}
	}
	s.router = s.routes()
	return s, nil
}

// Storage exposes the backing store, mainly for seeding.
func (s *Server) Storage() *Storage { return s.storage }

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	root := mux.NewRouter()
	root.Use(s.loggingMiddleware)
	root.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := root.PathPrefix(APIPrefix).Subrouter()
	api.Use(s.identify)

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.Handle("/auth/me", s.requireUser(s.handleMe)).Methods(http.MethodGet)

	api.Handle("/notes/", s.requireUser(s.handleCreateNote)).Methods(http.MethodPost)
	api.HandleFunc("/notes/", s.handleListPublicNotes).Methods(http.MethodGet)
	api.Handle("/notes/my", s.requireUser(s.handleListMyNotes)).Methods(http.MethodGet)
	api.HandleFunc("/notes/search", s.handleSearchNotes).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id:[0-9]+}", s.handleGetNote).Methods(http.MethodGet)
	api.Handle("/notes/{id:[0-9]+}", s.requireUser(s.handleUpdateNote)).Methods(http.MethodPut)
	api.Handle("/notes/{id:[0-9]+}", s.requireUser(s.handleDeleteNote)).Methods(http.MethodDelete)

	api.Handle("/collections/", s.requireUser(s.handleCreateCollection)).Methods(http.MethodPost)
	api.HandleFunc("/collections/", s.handleListPublicCollections).Methods(http.MethodGet)
	api.Handle("/collections/my", s.requireUser(s.handleListMyCollections)).Methods(http.MethodGet)
	api.HandleFunc("/collections/{id:[0-9]+}", s.handleGetCollection).Methods(http.MethodGet)
	api.Handle("/collections/{id:[0-9]+}", s.requireUser(s.handleUpdateCollection)).Methods(http.MethodPut)
	api.Handle("/collections/{id:[0-9]+}", s.requireUser(s.handleDeleteCollection)).Methods(http.MethodDelete)
	api.HandleFunc("/collections/{id:[0-9]+}/notes", s.handleCollectionNotes).Methods(http.MethodGet)
	api.Handle("/collections/{id:[0-9]+}/notes", s.requireUser(s.handleAddNote)).Methods(http.MethodPost)
	api.Handle("/collections/{id:[0-9]+}/notes/reorder", s.requireUser(s.handleReorder)).Methods(http.MethodPut)
	api.Handle("/collections/{id:[0-9]+}/notes/{note_id:[0-9]+}", s.requireUser(s.handleRemoveNote)).Methods(http.MethodDelete)
	api.Handle("/collections/{id:[0-9]+}/integrate", s.requireUser(s.handleIntegrate)).Methods(http.MethodPost)

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return root
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("starting dev server on %s", s.config.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Infof("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Infof("dev server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorDTO{Detail: detail})
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
