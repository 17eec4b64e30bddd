package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"noote/client/internal/apiclient"
)

// NotesService covers /notes.
type NotesService struct {
	client *apiclient.Client
}

func NewNotesService(client *apiclient.Client) *NotesService {
	return &NotesService{client: client}
}

func (s *NotesService) Create(ctx context.Context, note NoteCreate) (Note, error) {
	const op = "CreateNote"
	if note.FileType == "" {
		note.FileType = "md"
	}
	if err := note.Validate(); err != nil {
		return Note{}, invalid(op, err)
	}
	var created Note
	if err := s.client.Post(ctx, op, "/notes/", note, &created); err != nil {
		return Note{}, err
	}
	return created, nil
}

// ListPublic pages through public notes.
func (s *NotesService) ListPublic(ctx context.Context, page Page) ([]Note, error) {
	const op = "ListPublicNotes"
	if err := page.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	var notes []Note
	if err := s.client.Get(ctx, op, "/notes/", pageQuery(page), &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// ListMine returns the caller's notes, newest first.
func (s *NotesService) ListMine(ctx context.Context) ([]Note, error) {
	var notes []Note
	if err := s.client.Get(ctx, "ListMyNotes", "/notes/my", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *NotesService) Get(ctx context.Context, id int) (Note, error) {
	var note Note
	if err := s.client.Get(ctx, "GetNote", notePath(id), nil, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *NotesService) Update(ctx context.Context, id int, update NoteUpdate) (Note, error) {
	const op = "UpdateNote"
	if err := update.Validate(); err != nil {
		return Note{}, invalid(op, err)
	}
	var note Note
	if err := s.client.Put(ctx, op, notePath(id), update, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *NotesService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, "DeleteNote", notePath(id))
}

// Search matches title or content. An empty query returns no notes without
// calling the backend.
func (s *NotesService) Search(ctx context.Context, query string, scope SearchScope) ([]Note, error) {
	const op = "SearchNotes"
	if scope == "" {
		scope = ScopePublic
	}
	if err := scope.Validate(); err != nil {
		return nil, invalid(op, fmt.Errorf("scope: %w", err))
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []Note{}, nil
	}
	values := url.Values{}
	values.Set("q", query)
	values.Set("scope", string(scope))
	var notes []Note
	if err := s.client.Get(ctx, op, "/notes/search", values, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func notePath(id int) string {
	return "/notes/" + strconv.Itoa(id)
}

func pageQuery(page Page) url.Values {
	values := url.Values{}
	values.Set("skip", strconv.Itoa(page.Skip))
	values.Set("limit", strconv.Itoa(page.Limit))
	return values
}
