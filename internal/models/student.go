package models

import "time"

// Student represents a learner owned by a teacher
type Student struct {
	ID          int64      `json:"id"`
	TeacherID   int64      `json:"teacherId"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StudentSummary is a roster row with assignment counts
type StudentSummary struct {
	Student
	ActiveBooks    int `json:"activeBooks"`
	GraduatedBooks int `json:"graduatedBooks"`
}

// SongState pairs a catalog song with the student's instance of it.
// StudentSong is nil when the instance has not been materialised yet.
type SongState struct {
	Song        SongTemplate `json:"song"`
	StudentSong *StudentSong `json:"studentSong,omitempty"`
}

// AssignmentDetail is one assigned book with per-song state
type AssignmentDetail struct {
	Assignment BookAssignment `json:"assignment"`
	Book       BookTemplate   `json:"book"`
	Songs      []SongState    `json:"songs"`
}

// StudentDetail is the full view of a student used by the student page
type StudentDetail struct {
	Student     Student            `json:"student"`
	Assignments []AssignmentDetail `json:"assignments"`
}
