package models

import "time"

// Teacher represents a teacher account; every student belongs to exactly one teacher
type Teacher struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PasswordReset represents a single-use password reset token.
// Only the SHA-256 hash of the token is stored.
type PasswordReset struct {
	ID        int64
	TeacherID int64
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the reset token has expired
func (r *PasswordReset) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsUsable reports whether the token can still be redeemed
func (r *PasswordReset) IsUsable() bool {
	return r.UsedAt == nil && !r.IsExpired()
}
