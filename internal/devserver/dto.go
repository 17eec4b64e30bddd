package devserver

import "time"

// userDTO is the public view of a user.
type userDTO struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type registerDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type noteDTO struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	FileType      string    `json:"file_type"`
	IsPublic      bool      `json:"is_public"`
	UserID        int       `json:"user_id"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type noteCreateDTO struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	FileType string `json:"file_type"`
	IsPublic *bool  `json:"is_public"`
}

type noteUpdateDTO struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsPublic *bool   `json:"is_public"`
}

type collectionDTO struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CoverImage    string    `json:"cover_image,omitempty"`
	IsPublic      bool      `json:"is_public"`
	UserID        int       `json:"user_id"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	NoteCount     int       `json:"note_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type collectionCreateDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

type collectionUpdateDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CoverImage  *string `json:"cover_image"`
	IsPublic    *bool   `json:"is_public"`
}

type noteRefDTO struct {
	NoteID int `json:"note_id"`
}

type reorderDTO struct {
	NoteIDs []int `json:"note_ids"`
}

type integrateDTO struct {
	CustomPrompt string `json:"custom_prompt"`
	APIKey       string `json:"api_key"`
}

type integrationDTO struct {
	IntegratedContent string    `json:"integrated_content"`
	NoteCount         int       `json:"note_count"`
	CreatedAt         time.Time `json:"created_at"`
}

type messageDTO struct {
	Message string `json:"message"`
}

type errorDTO struct {
	Detail string `json:"detail"`
}
