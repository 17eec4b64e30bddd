package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	errNotFound = errors.New("not found")
	errConflict = errors.New("already exists")
)

const searchLimit = 50

// Storage is the in-memory database of the dev server. Methods return copies.
type Storage struct {
	mu          sync.RWMutex
	users       map[int]*User
	usersByName map[string]*User
	notes       map[int]*Note
	collections map[int]*Collection
	links       map[int][]*CollectionNote
	nextID      map[string]int
	now         func() time.Time
}

// NewStorage creates an empty storage.
func NewStorage() *Storage {
	return &Storage{
		users:       make(map[int]*User),
		usersByName: make(map[string]*User),
		notes:       make(map[int]*Note),
		collections: make(map[int]*Collection),
		links:       make(map[int][]*CollectionNote),
		nextID:      make(map[string]int),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Storage) id(kind string) int {
	s.nextID[kind]++
	return s.nextID[kind]
}

// CreateUser adds an account. Username and e-mail must be unique.
func (s *Storage) CreateUser(username, email string, hash []byte) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByName[username]; exists {
		return User{}, errConflict
	}
	for _, u := range s.users {
		if email != "" && strings.EqualFold(u.Email, email) {
			return User{}, errConflict
		}
	}
	user := &User{ID: s.id("user"), Username: username, Email: email, PasswordHash: hash, CreatedAt: s.now()}
	s.users[user.ID] = user
	s.usersByName[username] = user
	return *user, nil
}

func (s *Storage) UserByName(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.usersByName[username]
	if !ok {
		return User{}, errNotFound
	}
	return *user, nil
}

func (s *Storage) username(id int) string {
	if user, ok := s.users[id]; ok {
		return user.Username
	}
	return ""
}

// Username returns the name of the user with id, or "".
func (s *Storage) Username(id int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username(id)
}

func (s *Storage) CreateNote(note Note) Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	note.ID = s.id("note")
	note.CreatedAt, note.UpdatedAt = now, now
	stored := note
	s.notes[note.ID] = &stored
	return note
}

func (s *Storage) Note(id int) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok {
		return Note{}, errNotFound
	}
	return *note, nil
}

// UpdateNote applies fn to the stored note.
func (s *Storage) UpdateNote(id int, fn func(*Note)) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[id]
	if !ok {
		return Note{}, errNotFound
	}
	fn(note)
	note.UpdatedAt = s.now()
	return *note, nil
}

// DeleteNote removes the note and its collection memberships.
func (s *Storage) DeleteNote(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return errNotFound
	}
	delete(s.notes, id)
	for cid, links := range s.links {
		kept := links[:0]
		for _, link := range links {
			if link.NoteID != id {
				kept = append(kept, link)
			}
		}
		s.links[cid] = kept
	}
	return nil
}

// Notes returns notes accepted by keep, newest first.
func (s *Storage) Notes(keep func(Note) bool) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Note, 0)
	for _, note := range s.notes {
		if keep(*note) {
			result = append(result, *note)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// SearchNotes matches q case-insensitively in title or content among notes
// accepted by keep, most recently updated first, capped at 50.
func (s *Storage) SearchNotes(q string, keep func(Note) bool) []Note {
	needle := strings.ToLower(q)
	matches := s.Notes(func(n Note) bool {
		if !keep(n) {
			return false
		}
		return strings.Contains(strings.ToLower(n.Title), needle) || strings.Contains(strings.ToLower(n.Content), needle)
	})
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	if len(matches) > searchLimit {
		matches = matches[:searchLimit]
	}
	return matches
}

func (s *Storage) CreateCollection(c Collection) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c.ID = s.id("collection")
	c.CreatedAt, c.UpdatedAt = now, now
	stored := c
	s.collections[c.ID] = &stored
	return c
}

func (s *Storage) Collection(id int) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return Collection{}, errNotFound
	}
	return *c, nil
}

func (s *Storage) UpdateCollection(id int, fn func(*Collection)) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	if !ok {
		return Collection{}, errNotFound
	}
	fn(c)
	c.UpdatedAt = s.now()
	return *c, nil
}

func (s *Storage) DeleteCollection(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		return errNotFound
	}
	delete(s.collections, id)
	delete(s.links, id)
	return nil
}

// Collections returns collections accepted by keep, newest first.
func (s *Storage) Collections(keep func(Collection) bool) []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Collection, 0)
	for _, c := range s.collections {
		if keep(*c) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// NoteCount returns the number of notes linked into the collection.
func (s *Storage) NoteCount(collectionID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links[collectionID])
}

// AddLink appends noteID to the collection after the current last position.
func (s *Storage) AddLink(collectionID, noteID int) (CollectionNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxPosition := -1
	for _, link := range s.links[collectionID] {
		if link.NoteID == noteID {
			return CollectionNote{}, errConflict
		}
		if link.Position > maxPosition {
			maxPosition = link.Position
		}
	}
	link := &CollectionNote{
		ID:           s.id("link"),
		CollectionID: collectionID,
		NoteID:       noteID,
		Position:     maxPosition + 1,
		AddedAt:      s.now(),
	}
	s.links[collectionID] = append(s.links[collectionID], link)
	return *link, nil
}

func (s *Storage) RemoveLink(collectionID, noteID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := s.links[collectionID]
	for i, link := range links {
		if link.NoteID == noteID {
			s.links[collectionID] = append(links[:i], links[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// Reorder sets each listed note's position to its index. Unknown ids are
// ignored.
func (s *Storage) Reorder(collectionID int, noteIDs []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byNote := make(map[int]*CollectionNote, len(s.links[collectionID]))
	for _, link := range s.links[collectionID] {
		byNote[link.NoteID] = link
	}
	for index, noteID := range noteIDs {
		if link, ok := byNote[noteID]; ok {
			link.Position = index
		}
	}
}

// CollectionNotes returns the notes of a collection ordered by position.
func (s *Storage) CollectionNotes(collectionID int) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links := append([]*CollectionNote(nil), s.links[collectionID]...)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	result := make([]Note, 0, len(links))
	for _, link := range links {
		if note, ok := s.notes[link.NoteID]; ok {
			result = append(result, *note)
		}
	}
	return result
}
