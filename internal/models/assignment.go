package models

import "time"

// BookAssignment links a student to a book
type BookAssignment struct {
	ID             int64      `json:"id"`
	StudentID      int64      `json:"studentId"`
	BookTemplateID int64      `json:"bookTemplateId"`
	IsGraduated    bool       `json:"isGraduated"`
	GraduatedAt    *time.Time `json:"graduatedAt,omitempty"`
	AssignedAt     time.Time  `json:"assignedAt"`
}

// ToggleGraduation flips the graduation flag. The timestamp is stamped with now
// on false->true and cleared on true->false.
func (a *BookAssignment) ToggleGraduation(now time.Time) {
	a.IsGraduated = !a.IsGraduated
	if a.IsGraduated {
		a.GraduatedAt = &now
	} else {
		a.GraduatedAt = nil
	}
}
