package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gorilla/mux"
)

func (n noteCreateDTO) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&n.FileType, validation.In("md", "txt")),
	)
}

// handleCreateNote handles POST /notes/
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var req noteCreateDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.FileType == "" {
		req.FileType = "md"
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	note := s.storage.CreateNote(Note{
		Title:    req.Title,
		Content:  req.Content,
		FileType: req.FileType,
		IsPublic: boolOr(req.IsPublic, true),
		UserID:   user.ID,
	})
	writeJSON(w, http.StatusCreated, s.noteDTO(note))
}

// handleListPublicNotes handles GET /notes/?skip=&limit=
func (s *Server) handleListPublicNotes(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	notes := s.storage.Notes(func(n Note) bool { return n.IsPublic })
	writeJSON(w, http.StatusOK, s.noteDTOs(paginate(notes, skip, limit)))
}

// handleListMyNotes handles GET /notes/my
func (s *Server) handleListMyNotes(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	notes := s.storage.Notes(func(n Note) bool { return n.UserID == user.ID })
	writeJSON(w, http.StatusOK, s.noteDTOs(notes))
}

// handleSearchNotes handles GET /notes/search?q=&scope=
func (s *Server) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []noteDTO{})
		return
	}
	scope := query.Get("scope")
	if scope == "" {
		scope = "public"
	}
	user, authed := userFromContext(r.Context())

	var keep func(Note) bool
	switch scope {
	case "public":
		keep = func(n Note) bool { return n.IsPublic }
	case "my":
		if !authed {
			unauthorizedDetail(w, "Login required to search your notes")
			return
		}
		keep = func(n Note) bool { return n.UserID == user.ID }
	case "all":
		if !authed {
			unauthorizedDetail(w, "Login required for global search")
			return
		}
		keep = func(n Note) bool { return n.IsPublic || n.UserID == user.ID }
	default:
		writeError(w, http.StatusBadRequest, "Invalid search scope, use public/my/all")
		return
	}
	writeJSON(w, http.StatusOK, s.noteDTOs(s.storage.SearchNotes(q, keep)))
}

// handleGetNote handles GET /notes/{id}. Private notes are never served
// through this endpoint.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, ok := s.lookupNote(w, r, "id")
	if !ok {
		return
	}
	if !note.IsPublic {
		writeError(w, http.StatusForbidden, "This note is private")
		return
	}
	writeJSON(w, http.StatusOK, s.noteDTO(note))
}

// handleUpdateNote handles PUT /notes/{id}
func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	note, ok := s.ownedNote(w, r, "You cannot modify this note")
	if !ok {
		return
	}
	var req noteUpdateDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	updated, err := s.storage.UpdateNote(note.ID, func(n *Note) {
		if req.Title != nil {
			n.Title = *req.Title
		}
		if req.Content != nil {
			n.Content = *req.Content
		}
		if req.IsPublic != nil {
			n.IsPublic = *req.IsPublic
		}
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	writeJSON(w, http.StatusOK, s.noteDTO(updated))
}

// handleDeleteNote handles DELETE /notes/{id}
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	note, ok := s.ownedNote(w, r, "You cannot delete this note")
	if !ok {
		return
	}
	if err := s.storage.DeleteNote(note.ID); err != nil {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupNote(w http.ResponseWriter, r *http.Request, param string) (Note, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[param])
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid note id")
		return Note{}, false
	}
	note, err := s.storage.Note(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Note not found")
		return Note{}, false
	}
	return note, true
}

func (s *Server) ownedNote(w http.ResponseWriter, r *http.Request, forbidden string) (Note, bool) {
	note, ok := s.lookupNote(w, r, "id")
	if !ok {
		return Note{}, false
	}
	user, _ := userFromContext(r.Context())
	if note.UserID != user.ID {
		writeError(w, http.StatusForbidden, forbidden)
		return Note{}, false
	}
	return note, true
}

func (s *Server) noteDTO(n Note) noteDTO {
	return noteDTO{
		ID:            n.ID,
		Title:         n.Title,
		Content:       n.Content,
		FileType:      n.FileType,
		IsPublic:      n.IsPublic,
		UserID:        n.UserID,
		OwnerUsername: s.storage.Username(n.UserID),
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

func (s *Server) noteDTOs(notes []Note) []noteDTO {
	result := make([]noteDTO, 0, len(notes))
	for _, n := range notes {
		result = append(result, s.noteDTO(n))
	}
	return result
}

func unauthorizedDetail(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func pageParams(r *http.Request) (int, int, error) {
	query := r.URL.Query()
	skip, limit := 0, defaultLimit
	if raw := query.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, errors.New("skip must be a non-negative integer")
		}
		skip = v
	}
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			return 0, 0, errors.New("limit must be between 1 and 100")
		}
		limit = v
	}
	return skip, limit, nil
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return items[:0]
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}
