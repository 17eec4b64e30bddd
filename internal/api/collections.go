package api

import (
	"context"
	"errors"
	"strconv"

	"noote/client/internal/apiclient"
)

// CollectionsService covers /collections and its note sub-resources.
type CollectionsService struct {
	client *apiclient.Client
}

func NewCollectionsService(client *apiclient.Client) *CollectionsService {
	return &CollectionsService{client: client}
}

func (s *CollectionsService) Create(ctx context.Context, c CollectionCreate) (Collection, error) {
	const op = "CreateCollection"
	if err := c.Validate(); err != nil {
		return Collection{}, invalid(op, err)
	}
	var created Collection
	if err := s.client.Post(ctx, op, "/collections/", c, &created); err != nil {
		return Collection{}, err
	}
	return created, nil
}

func (s *CollectionsService) ListPublic(ctx context.Context, page Page) ([]Collection, error) {
	const op = "ListPublicCollections"
	if err := page.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	var list []Collection
	if err := s.client.Get(ctx, op, "/collections/", pageQuery(page), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *CollectionsService) ListMine(ctx context.Context) ([]Collection, error) {
	var list []Collection
	if err := s.client.Get(ctx, "ListMyCollections", "/collections/my", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *CollectionsService) Get(ctx context.Context, id int) (Collection, error) {
	var c Collection
	if err := s.client.Get(ctx, "GetCollection", collectionPath(id), nil, &c); err != nil {
		return Collection{}, err
	}
	return c, nil
}

func (s *CollectionsService) Update(ctx context.Context, id int, update CollectionUpdate) (Collection, error) {
	const op = "UpdateCollection"
	if err := update.Validate(); err != nil {
		return Collection{}, invalid(op, err)
	}
	var c Collection
	if err := s.client.Put(ctx, op, collectionPath(id), update, &c); err != nil {
		return Collection{}, err
	}
	return c, nil
}

func (s *CollectionsService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, "DeleteCollection", collectionPath(id))
}

// Notes returns the collection's notes in their stored order.
func (s *CollectionsService) Notes(ctx context.Context, id int) ([]Note, error) {
	var notes []Note
	if err := s.client.Get(ctx, "GetCollectionNotes", collectionPath(id)+"/notes", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// AddNote appends a note at the end of the collection.
func (s *CollectionsService) AddNote(ctx context.Context, collectionID, noteID int) error {
	var ack Message
	return s.client.Post(ctx, "AddNoteToCollection", collectionPath(collectionID)+"/notes", noteRef{NoteID: noteID}, &ack)
}

func (s *CollectionsService) RemoveNote(ctx context.Context, collectionID, noteID int) error {
	path := collectionPath(collectionID) + "/notes/" + strconv.Itoa(noteID)
	return s.client.Delete(ctx, "RemoveNoteFromCollection", path)
}

// Reorder sets the note order. noteIDs must list every note of the collection.
func (s *CollectionsService) Reorder(ctx context.Context, collectionID int, noteIDs []int) error {
	const op = "ReorderCollectionNotes"
	if len(noteIDs) == 0 {
		return invalid(op, errors.New("note_ids: cannot be blank"))
	}
	seen := make(map[int]struct{}, len(noteIDs))
	for _, id := range noteIDs {
		if _, dup := seen[id]; dup {
			return invalid(op, errors.New("note_ids: duplicate id "+strconv.Itoa(id)))
		}
		seen[id] = struct{}{}
	}
	var ack Message
	return s.client.Put(ctx, op, collectionPath(collectionID)+"/notes/reorder", reorderRequest{NoteIDs: noteIDs}, &ack)
}

// Integrate asks the backend to merge the collection's notes into one text.
func (s *CollectionsService) Integrate(ctx context.Context, collectionID int, req IntegrationRequest) (IntegrationResponse, error) {
	const op = "IntegrateCollection"
	if err := req.Validate(); err != nil {
		return IntegrationResponse{}, invalid(op, err)
	}
	var resp IntegrationResponse
	if err := s.client.Post(ctx, op, collectionPath(collectionID)+"/integrate", req, &resp); err != nil {
		return IntegrationResponse{}, err
	}
	return resp, nil
}

func collectionPath(id int) string {
	return "/collections/" + strconv.Itoa(id)
}
