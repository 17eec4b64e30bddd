package devserver

import "time"

// User represents a registered account.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Note represents a stored note.
type Note struct {
	ID        int
	Title     string
	Content   string
	FileType  string
	IsPublic  bool
	UserID    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Collection represents an ordered set of notes.
type Collection struct {
	ID          int
	Name        string
	Description string
	CoverImage  string
	IsPublic    bool
	UserID      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CollectionNote links a note into a collection at a position.
type CollectionNote struct {
	ID           int
	CollectionID int
	NoteID       int
	Position     int
	AddedAt      time.Time
}
