package models

import "time"

// BookTemplate is a numbered method book in the catalog
type BookTemplate struct {
	ID         int64     `json:"id"`
	TeacherID  int64     `json:"teacherId"`
	Title      string    `json:"title"`
	Number     int       `json:"number"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SongTemplate is a piece within a book. Position defines progression order.
type SongTemplate struct {
	ID             int64     `json:"id"`
	BookTemplateID int64     `json:"bookTemplateId"`
	Title          string    `json:"title"`
	Position       int       `json:"order"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BookWithSongs combines a book with its ordered songs
type BookWithSongs struct {
	Book  BookTemplate   `json:"book"`
	Songs []SongTemplate `json:"songs"`
}

// BookSummary extends BookWithSongs with the number of students holding the book
type BookSummary struct {
	BookWithSongs
	AssignmentCount int `json:"assignmentCount"`
}

// BookDetail is a book with the students it is assigned to
type BookDetail struct {
	BookWithSongs
	Students []Student `json:"students"`
}

// NewSong is the input for a song created together with its book
type NewSong struct {
	Title string `json:"title" validate:"required,max=255"`
}

// NewBook is the input for createBook
type NewBook struct {
	Title      string    `json:"title" validate:"required,max=255"`
	Number     int       `json:"number" validate:"min=1"`
	CoverImage string    `json:"coverImage" validate:"max=1024"`
	Songs      []NewSong `json:"songs" validate:"dive"`
}

// BookUpdate carries optional changes for updateBook; nil fields are left as they are
type BookUpdate struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=255"`
	Number     *int    `json:"number" validate:"omitempty,min=1"`
	CoverImage *string `json:"coverImage" validate:"omitempty,max=1024"`
}
