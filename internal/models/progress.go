package models

import (
	"fmt"
	"time"
)

// StudentSong is a student's instance of a catalog song
type StudentSong struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"studentId"`
	SongTemplateID int64     `json:"songTemplateId"`
	Flags
	Notes     string    `json:"notes"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	AudioURL  string    `json:"audioUrl,omitempty"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Flags are the coarse mastery markers of a StudentSong
type Flags struct {
	Left      bool `json:"learnedLeft"`
	Right     bool `json:"learnedRight"`
	Both      bool `json:"learnedBoth"`
	Completed bool `json:"completed"`
}

// Field names one mastery flag
type Field string

const (
	FieldLeft      Field = "left"
	FieldRight     Field = "right"
	FieldBoth      Field = "both"
	FieldCompleted Field = "completed"
)

// ParseField validates a flag name
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldLeft, FieldRight, FieldBoth, FieldCompleted:
		return f, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Get returns the value of one flag
func (f Flags) Get(field Field) bool {
	switch field {
	case FieldLeft:
		return f.Left
	case FieldRight:
		return f.Right
	case FieldBoth:
		return f.Both
	case FieldCompleted:
		return f.Completed
	}
	return false
}

func (f *Flags) set(field Field, v bool) {
	switch field {
	case FieldLeft:
		f.Left = v
	case FieldRight:
		f.Right = v
	case FieldBoth:
		f.Both = v
	case FieldCompleted:
		f.Completed = v
	}
}

// ToggleResult is the outcome of flipping one flag
type ToggleResult struct {
	Flags    Flags   `json:"flags"`
	Field    Field   `json:"field"`
	NewValue bool    `json:"newValue"`
	Changed  []Field `json:"updatedFields"`
}

// Toggle flips one flag. Turning both on also turns left and right on;
// turning both off leaves them alone. Changed lists every flag whose value
// differs from the input, toggled field first.
func (f Flags) Toggle(field Field) ToggleResult {
	next := f
	newValue := !f.Get(field)
	next.set(field, newValue)
	if field == FieldBoth && newValue {
		next.Left = true
		next.Right = true
	}

	changed := []Field{field}
	for _, other := range []Field{FieldLeft, FieldRight} {
		if other != field && f.Get(other) != next.Get(other) {
			changed = append(changed, other)
		}
	}

	return ToggleResult{Flags: next, Field: field, NewValue: newValue, Changed: changed}
}

// ProgressNote is one immutable, dated percentage snapshot for a StudentSong
type ProgressNote struct {
	ID            int64     `json:"id"`
	StudentSongID int64     `json:"studentSongId"`
	LeftHand      int       `json:"leftHand"`
	RightHand     int       `json:"rightHand"`
	BothHands     int       `json:"bothHands"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ValidPercent reports whether v is within 0..100 inclusive
func ValidPercent(v int) bool {
	return v >= 0 && v <= 100
}

// MediaKind is the kind of uploaded file attached to a StudentSong
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)
