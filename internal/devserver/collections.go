package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gorilla/mux"
)

func (c collectionCreateDTO) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 100)),
	)
}

// handleCreateCollection handles POST /collections/
func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var req collectionCreateDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c := s.storage.CreateCollection(Collection{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    boolOr(req.IsPublic, true),
		UserID:      user.ID,
	})
	writeJSON(w, http.StatusCreated, s.collectionDTO(c))
}

// handleListPublicCollections handles GET /collections/?skip=&limit=
func (s *Server) handleListPublicCollections(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	list := s.storage.Collections(func(c Collection) bool { return c.IsPublic })
	writeJSON(w, http.StatusOK, s.collectionDTOs(paginate(list, skip, limit)))
}

// handleListMyCollections handles GET /collections/my
func (s *Server) handleListMyCollections(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	list := s.storage.Collections(func(c Collection) bool { return c.UserID == user.ID })
	writeJSON(w, http.StatusOK, s.collectionDTOs(list))
}

// handleGetCollection handles GET /collections/{id}
func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.visibleCollection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.collectionDTO(c))
}

// handleUpdateCollection handles PUT /collections/{id}
func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.ownedCollection(w, r, "You cannot modify this collection")
	if !ok {
		return
	}
	var req collectionUpdateDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	updated, err := s.storage.UpdateCollection(c.ID, func(c *Collection) {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.CoverImage != nil {
			c.CoverImage = *req.CoverImage
		}
		if req.IsPublic != nil {
			c.IsPublic = *req.IsPublic
		}
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	writeJSON(w, http.StatusOK, s.collectionDTO(updated))
}

// handleDeleteCollection handles DELETE /collections/{id}
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.ownedCollection(w, r, "You cannot delete this collection")
	if !ok {
		return
	}
	if err := s.storage.DeleteCollection(c.ID); err != nil {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCollectionNotes handles GET /collections/{id}/notes
func (s *Server) handleCollectionNotes(w http.ResponseWriter, r *http.Request) {
	c, ok := s.visibleCollection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.noteDTOs(s.readableNotes(r, c)))
}

// handleAddNote handles POST /collections/{id}/notes
func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	c, ok := s.ownedCollection(w, r, "You can only add notes to your own collections")
	if !ok {
		return
	}
	var req noteRefDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := s.storage.Note(req.NoteID); err != nil {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	if _, err := s.storage.AddLink(c.ID, req.NoteID); errors.Is(err, errConflict) {
		writeError(w, http.StatusBadRequest, "Note is already in the collection")
		return
	}
	writeJSON(w, http.StatusCreated, messageDTO{Message: "Note added to collection"})
}

// handleRemoveNote handles DELETE /collections/{id}/notes/{note_id}
func (s *Server) handleRemoveNote(w http.ResponseWriter, r *http.Request) {
	c, ok := s.ownedCollection(w, r, "You can only remove notes from your own collections")
	if !ok {
		return
	}
	noteID, err := strconv.Atoi(mux.Vars(r)["note_id"])
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid note id")
		return
	}
	if err := s.storage.RemoveLink(c.ID, noteID); err != nil {
		writeError(w, http.StatusNotFound, "Note is not in this collection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorder handles PUT /collections/{id}/notes/reorder
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	c, ok := s.ownedCollection(w, r, "You can only reorder your own collections")
	if !ok {
		return
	}
	var req reorderDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.storage.Reorder(c.ID, req.NoteIDs)
	writeJSON(w, http.StatusOK, messageDTO{Message: "Order updated"})
}

// handleIntegrate handles POST /collections/{id}/integrate. The dev server
// has no language model, so the notes are concatenated under their titles.
func (s *Server) handleIntegrate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.visibleCollection(w, r)
	if !ok {
		return
	}
	var req integrateDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}
	if s.storage.NoteCount(c.ID) == 0 {
		writeError(w, http.StatusBadRequest, "The collection has no notes to integrate")
		return
	}
	notes := s.readableNotes(r, c)
	if len(notes) == 0 {
		writeError(w, http.StatusBadRequest, "The collection has no usable notes to integrate")
		return
	}
	writeJSON(w, http.StatusOK, integrationDTO{
		IntegratedContent: integrate(c.Name, req.CustomPrompt, notes),
		NoteCount:         len(notes),
		CreatedAt:         time.Now().UTC(),
	})
}

func integrate(name, prompt string, notes []Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		fmt.Fprintf(&b, "> %s\n\n", prompt)
	}
	for i, n := range notes {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n", n.Title, strings.TrimSpace(n.Content))
	}
	return b.String()
}

// readableNotes filters a public collection down to public notes and the
// caller's own. A private collection is only visible to its owner, who sees
// everything.
func (s *Server) readableNotes(r *http.Request, c Collection) []Note {
	notes := s.storage.CollectionNotes(c.ID)
	if !c.IsPublic {
		return notes
	}
	user, authed := userFromContext(r.Context())
	result := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.IsPublic || (authed && n.UserID == user.ID) {
			result = append(result, n)
		}
	}
	return result
}

func (s *Server) lookupCollection(w http.ResponseWriter, r *http.Request) (Collection, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid collection id")
		return Collection{}, false
	}
	c, err := s.storage.Collection(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Collection not found")
		return Collection{}, false
	}
	return c, true
}

func (s *Server) visibleCollection(w http.ResponseWriter, r *http.Request) (Collection, bool) {
	c, ok := s.lookupCollection(w, r)
	if !ok {
		return Collection{}, false
	}
	if !c.IsPublic {
		user, authed := userFromContext(r.Context())
		if !authed || user.ID != c.UserID {
			writeError(w, http.StatusForbidden, "This collection is private")
			return Collection{}, false
		}
	}
	return c, true
}

func (s *Server) ownedCollection(w http.ResponseWriter, r *http.Request, forbidden string) (Collection, bool) {
	c, ok := s.lookupCollection(w, r)
	if !ok {
		return Collection{}, false
	}
	user, _ := userFromContext(r.Context())
	if c.UserID != user.ID {
		writeError(w, http.StatusForbidden, forbidden)
		return Collection{}, false
	}
	return c, true
}

func (s *Server) collectionDTO(c Collection) collectionDTO {
	return collectionDTO{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		CoverImage:    c.CoverImage,
		IsPublic:      c.IsPublic,
		UserID:        c.UserID,
		OwnerUsername: s.storage.Username(c.UserID),
		NoteCount:     s.storage.NoteCount(c.ID),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (s *Server) collectionDTOs(list []Collection) []collectionDTO {
	result := make([]collectionDTO, 0, len(list))
	for _, c := range list {
		result = append(result, s.collectionDTO(c))
	}
	return result
}
