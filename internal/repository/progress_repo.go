package repository

import (
	"context"
	"database/sql"
	"fmt"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// ProgressRepository handles database operations for progress notes
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// CreateProgressNote appends a progress note stamped with the current time
func (r *ProgressRepository) CreateProgressNote(ctx context.Context, studentSongID int64, left, right, both int, note string) (*models.ProgressNote, error) {
	ts := now()
	query := `
		INSERT INTO progress_notes (student_song_id, left_hand, right_hand, both_hands, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, studentSongID, left, right, both, note, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress note: %w", err)
	}

	return &models.ProgressNote{
		ID:            id,
		StudentSongID: studentSongID,
		LeftHand:      left,
		RightHand:     right,
		BothHands:     both,
		Note:          note,
		CreatedAt:     ts,
	}, nil
}

const progressColumns = "id, student_song_id, left_hand, right_hand, both_hands, note, created_at"

func scanProgressNote(row interface{ Scan(...interface{}) error }) (*models.ProgressNote, error) {
	p := &models.ProgressNote{}
	if err := row.Scan(&p.ID, &p.StudentSongID, &p.LeftHand, &p.RightHand, &p.BothHands, &p.Note, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProgressNoteByID retrieves a progress note by ID
func (r *ProgressRepository) GetProgressNoteByID(ctx context.Context, id int64) (*models.ProgressNote, error) {
	query := "SELECT " + progressColumns + " FROM progress_notes WHERE id = ?"
	p, err := scanProgressNote(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress note: %w", err)
	}
	return p, nil
}

// GetProgressNotes retrieves a student song's history, newest first
func (r *ProgressRepository) GetProgressNotes(ctx context.Context, studentSongID int64) ([]models.ProgressNote, error) {
	query := "SELECT " + progressColumns + " FROM progress_notes WHERE student_song_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, studentSongID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress notes: %w", err)
	}
	defer rows.Close()

	var notes []models.ProgressNote
	for rows.Next() {
		p, err := scanProgressNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress note: %w", err)
		}
		notes = append(notes, *p)
	}

	return notes, rows.Err()
}

// DeleteProgressNote deletes one progress note
func (r *ProgressRepository) DeleteProgressNote(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM progress_notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete progress note: %w", err)
	}
	return nil
}

// DeleteProgressForSongs deletes the history of a student's instances of the given songs
func (r *ProgressRepository) DeleteProgressForSongs(ctx context.Context, studentID int64, songIDs []int64) error {
	if len(songIDs) == 0 {
		return nil
	}
	in, args := inArgs(songIDs)
	query := `
		DELETE FROM progress_notes WHERE student_song_id IN (
			SELECT id FROM student_songs WHERE student_id = ? AND song_template_id IN (` + in + `)
		)
	`
	if _, err := r.db.ExecContext(ctx, query, append([]interface{}{studentID}, args...)...); err != nil {
		return fmt.Errorf("failed to delete progress notes: %w", err)
	}
	return nil
}

// DeleteProgressForBook deletes the history of every student's instances of a book's songs
func (r *ProgressRepository) DeleteProgressForBook(ctx context.Context, bookID int64) error {
	query := `
		DELETE FROM progress_notes WHERE student_song_id IN (
			SELECT ss.id FROM student_songs ss
			JOIN song_templates st ON st.id = ss.song_template_id
			WHERE st.book_template_id = ?
		)
	`
	if _, err := r.db.ExecContext(ctx, query, bookID); err != nil {
		return fmt.Errorf("failed to delete book progress notes: %w", err)
	}
	return nil
}

// DeleteProgressForStudent deletes the history of every song instance of a student
func (r *ProgressRepository) DeleteProgressForStudent(ctx context.Context, studentID int64) error {
	query := "DELETE FROM progress_notes WHERE student_song_id IN (SELECT id FROM student_songs WHERE student_id = ?)"
	if _, err := r.db.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("failed to delete student progress notes: %w", err)
	}
	return nil
}
