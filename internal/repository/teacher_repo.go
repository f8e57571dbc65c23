package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// TeacherRepository handles database operations for teacher accounts and password resets
type TeacherRepository struct {
	db database.DBTX
}

// NewTeacherRepository creates a new teacher repository
func NewTeacherRepository(db database.DBTX) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// CreateTeacher inserts a new teacher
func (r *TeacherRepository) CreateTeacher(ctx context.Context, email, passwordHash, name string) (*models.Teacher, error) {
	ts := now()
	query := `
		INSERT INTO teachers (email, password_hash, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, email, passwordHash, name, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create teacher: %w", err)
	}

	return &models.Teacher{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, nil
}

const teacherColumns = "id, email, password_hash, name, created_at, updated_at"

func scanTeacher(row interface{ Scan(...interface{}) error }) (*models.Teacher, error) {
	t := &models.Teacher{}
	if err := row.Scan(&t.ID, &t.Email, &t.PasswordHash, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTeacherByEmail retrieves a teacher by email address
func (r *TeacherRepository) GetTeacherByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers WHERE email = ?"
	t, err := scanTeacher(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return t, nil
}

// GetTeacherByID retrieves a teacher by ID
func (r *TeacherRepository) GetTeacherByID(ctx context.Context, id int64) (*models.Teacher, error) {
	query := "SELECT " + teacherColumns + " FROM teachers WHERE id = ?"
	t, err := scanTeacher(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return t, nil
}

// UpdatePassword replaces a teacher's password hash
func (r *TeacherRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := "UPDATE teachers SET password_hash = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, passwordHash, now(), id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// CreatePasswordReset stores the hash of a new reset token
func (r *TeacherRepository) CreatePasswordReset(ctx context.Context, teacherID int64, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO password_resets (teacher_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, teacherID, tokenHash, expiresAt.UTC(), now()); err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	return nil
}

// GetPasswordReset retrieves a reset by token hash
func (r *TeacherRepository) GetPasswordReset(ctx context.Context, tokenHash string) (*models.PasswordReset, error) {
	query := `
		SELECT id, teacher_id, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = ?
	`
	reset := &models.PasswordReset{}
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&reset.ID,
		&reset.TeacherID,
		&reset.TokenHash,
		&reset.ExpiresAt,
		&usedAt,
		&reset.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}
	reset.UsedAt = nullTimePtr(usedAt)
	return reset, nil
}

// MarkPasswordResetUsed consumes a reset token. It returns false if the token was already used.
func (r *TeacherRepository) MarkPasswordResetUsed(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL", now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark password reset used: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, fmt.Errorf("failed to mark password reset used: %w", err)
	}
	return n == 1, nil
}

// DeleteExpiredPasswordResets removes reset tokens past their expiry
func (r *TeacherRepository) DeleteExpiredPasswordResets(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM password_resets WHERE expires_at < ?", now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password resets: %w", err)
	}
	return rowsAffected(res)
}

// DeleteTeacherPasswordResets removes every reset token of a teacher
func (r *TeacherRepository) DeleteTeacherPasswordResets(ctx context.Context, teacherID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM password_resets WHERE teacher_id = ?", teacherID); err != nil {
		return fmt.Errorf("failed to delete password resets: %w", err)
	}
	return nil
}
