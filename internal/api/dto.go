package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Timestamp accepts RFC 3339 values as well as the zone-less ISO timestamps
// the backend emits for naive UTC datetimes.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if strings.TrimSpace(string(data)) == "null" {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// User is the profile returned by /auth/me and /auth/register.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt Timestamp `json:"created_at"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

// LoginRequest is sent form-encoded to POST /auth/login.
type LoginRequest struct {
	Username string
	Password string
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Note mirrors the backend note resource.
type Note struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	FileType      string    `json:"file_type"`
	IsPublic      bool      `json:"is_public"`
	UserID        int       `json:"user_id"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
}

// NoteCreate is the body of POST /notes/.
type NoteCreate struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	FileType string `json:"file_type"`
	IsPublic bool   `json:"is_public"`
}

func (n NoteCreate) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&n.FileType, validation.In("md", "txt")),
	)
}

// NoteUpdate carries the fields to change; nil fields are left untouched.
type NoteUpdate struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

func (n NoteUpdate) Validate() error {
	if n.Title == nil && n.Content == nil && n.IsPublic == nil {
		return fmt.Errorf("nothing to update")
	}
	if n.Title != nil && strings.TrimSpace(*n.Title) == "" {
		return fmt.Errorf("title: cannot be blank")
	}
	return nil
}

// SearchScope selects which notes a search covers.
type SearchScope string

const (
	ScopePublic SearchScope = "public"
	ScopeMine   SearchScope = "my"
	ScopeAll    SearchScope = "all"
)

func (s SearchScope) Validate() error {
	return validation.Validate(string(s), validation.Required, validation.In("public", "my", "all"))
}

// Page is the skip/limit pair used by list endpoints.
type Page struct {
	Skip  int
	Limit int
}

// DefaultPage matches the backend defaults.
var DefaultPage = Page{Skip: 0, Limit: 20}

func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Skip, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// Collection mirrors the backend collection resource.
type Collection struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CoverImage    string    `json:"cover_image,omitempty"`
	IsPublic      bool      `json:"is_public"`
	UserID        int       `json:"user_id"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	NoteCount     int       `json:"note_count"`
	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
}

// CollectionCreate is the body of POST /collections/.
type CollectionCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

func (c CollectionCreate) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 100)),
	)
}

// CollectionUpdate carries the fields to change.
type CollectionUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	CoverImage  *string `json:"cover_image,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

func (c CollectionUpdate) Validate() error {
	if c.Name == nil && c.Description == nil && c.CoverImage == nil && c.IsPublic == nil {
		return fmt.Errorf("nothing to update")
	}
	if c.CoverImage != nil && *c.CoverImage != "" {
		if err := validation.Validate(*c.CoverImage, is.URL); err != nil {
			return fmt.Errorf("cover_image: %w", err)
		}
	}
	return nil
}

type noteRef struct {
	NoteID int `json:"note_id"`
}

type reorderRequest struct {
	NoteIDs []int `json:"note_ids"`
}

// IntegrationRequest asks the backend to merge a collection's notes.
type IntegrationRequest struct {
	CustomPrompt string `json:"custom_prompt,omitempty"`
	APIKey       string `json:"api_key"`
}

func (r IntegrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIKey, validation.Required),
	)
}

// IntegrationResponse is the merged document.
type IntegrationResponse struct {
	IntegratedContent string    `json:"integrated_content"`
	NoteCount         int       `json:"note_count"`
	CreatedAt         Timestamp `json:"created_at"`
}

// Message is the generic {"message": ...} acknowledgement.
type Message struct {
	Message string `json:"message"`
}
