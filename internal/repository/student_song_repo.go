package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// StudentSongRepository handles database operations for per-student song instances
type StudentSongRepository struct {
	db database.DBTX
}

// NewStudentSongRepository creates a new student song repository
func NewStudentSongRepository(db database.DBTX) *StudentSongRepository {
	return &StudentSongRepository{db: db}
}

const studentSongColumns = `ss.id, ss.student_id, ss.song_template_id, ss.learned_left, ss.learned_right,
	ss.learned_both, ss.completed, ss.notes, ss.image_url, ss.audio_url, ss.video_url, ss.created_at, ss.updated_at`

func scanStudentSong(row interface{ Scan(...interface{}) error }) (*models.StudentSong, error) {
	s := &models.StudentSong{}
	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.SongTemplateID,
		&s.Left,
		&s.Right,
		&s.Both,
		&s.Completed,
		&s.Notes,
		&s.ImageURL,
		&s.AudioURL,
		&s.VideoURL,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetStudentSongByID retrieves a student song; lock takes a row lock inside a transaction
func (r *StudentSongRepository) GetStudentSongByID(ctx context.Context, id int64, lock bool) (*models.StudentSong, error) {
	query := "SELECT " + studentSongColumns + " FROM student_songs ss WHERE ss.id = ?" + lockSuffix(r.db, lock)
	s, err := scanStudentSong(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student song: %w", err)
	}
	return s, nil
}

// GetStudentSong retrieves the instance of songID for studentID
func (r *StudentSongRepository) GetStudentSong(ctx context.Context, studentID, songID int64, lock bool) (*models.StudentSong, error) {
	query := "SELECT " + studentSongColumns + " FROM student_songs ss WHERE ss.student_id = ? AND ss.song_template_id = ?" + lockSuffix(r.db, lock)
	s, err := scanStudentSong(r.db.QueryRowContext(ctx, query, studentID, songID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student song: %w", err)
	}
	return s, nil
}

// EnsureStudentSong creates the (student, song) instance if it is missing.
// Concurrent callers collapse onto the unique key instead of inserting twice.
func (r *StudentSongRepository) EnsureStudentSong(ctx context.Context, studentID, songID int64) error {
	ts := now()
	cols := []string{"student_id", "song_template_id", "created_at", "updated_at"}
	query := r.db.GetDialect().Upsert("student_songs", cols, []string{"student_id", "song_template_id"}, nil)
	if _, err := r.db.ExecContext(ctx, query, studentID, songID, ts, ts); err != nil {
		return fmt.Errorf("failed to ensure student song: %w", err)
	}
	return nil
}

// CreateStudentSongs bulk-creates fresh instances of songIDs for a student
func (r *StudentSongRepository) CreateStudentSongs(ctx context.Context, studentID int64, songIDs []int64) error {
	if len(songIDs) == 0 {
		return nil
	}

	ts := now()
	values := make([]string, len(songIDs))
	args := make([]interface{}, 0, len(songIDs)*4)
	for i, songID := range songIDs {
		values[i] = "(" + database.Placeholders(4) + ")"
		args = append(args, studentID, songID, ts, ts)
	}

	query := "INSERT INTO student_songs (student_id, song_template_id, created_at, updated_at) VALUES " + strings.Join(values, ", ")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create student songs: %w", err)
	}
	return nil
}

// GetStudentSongs retrieves every song instance of a student
func (r *StudentSongRepository) GetStudentSongs(ctx context.Context, studentID int64) ([]models.StudentSong, error) {
	query := "SELECT " + studentSongColumns + " FROM student_songs ss WHERE ss.student_id = ? ORDER BY ss.id ASC"
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query student songs: %w", err)
	}
	defer rows.Close()

	var songs []models.StudentSong
	for rows.Next() {
		s, err := scanStudentSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student song: %w", err)
		}
		songs = append(songs, *s)
	}

	return songs, rows.Err()
}

// CountSongInstances returns how many student instances reference a song template
func (r *StudentSongRepository) CountSongInstances(ctx context.Context, songID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM student_songs WHERE song_template_id = ?", songID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count student songs: %w", err)
	}
	return count, nil
}

// UpdateFlags writes all mastery flags of a student song
func (r *StudentSongRepository) UpdateFlags(ctx context.Context, id int64, flags models.Flags) error {
	query := `
		UPDATE student_songs
		SET learned_left = ?, learned_right = ?, learned_both = ?, completed = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, flags.Left, flags.Right, flags.Both, flags.Completed, now(), id); err != nil {
		return fmt.Errorf("failed to update flags: %w", err)
	}
	return nil
}

// UpdateDetails writes notes and the external video link
func (r *StudentSongRepository) UpdateDetails(ctx context.Context, id int64, notes, videoURL string) error {
	query := "UPDATE student_songs SET notes = ?, video_url = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, notes, videoURL, now(), id); err != nil {
		return fmt.Errorf("failed to update song details: %w", err)
	}
	return nil
}

// UpdateMedia stores the URL of an uploaded image or audio file
func (r *StudentSongRepository) UpdateMedia(ctx context.Context, id int64, kind models.MediaKind, url string) error {
	var column string
	switch kind {
	case models.MediaImage:
		column = "image_url"
	case models.MediaAudio:
		column = "audio_url"
	default:
		return fmt.Errorf("unknown media kind %q", kind)
	}

	query := "UPDATE student_songs SET " + column + " = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, url, now(), id); err != nil {
		return fmt.Errorf("failed to update song media: %w", err)
	}
	return nil
}

// DeleteStudentSongsForSongs deletes a student's instances of the given songs
func (r *StudentSongRepository) DeleteStudentSongsForSongs(ctx context.Context, studentID int64, songIDs []int64) error {
	if len(songIDs) == 0 {
		return nil
	}
	in, args := inArgs(songIDs)
	query := "DELETE FROM student_songs WHERE student_id = ? AND song_template_id IN (" + in + ")"
	if _, err := r.db.ExecContext(ctx, query, append([]interface{}{studentID}, args...)...); err != nil {
		return fmt.Errorf("failed to delete student songs: %w", err)
	}
	return nil
}

// DeleteStudentSongsForBook deletes every student's instances of a book's songs
func (r *StudentSongRepository) DeleteStudentSongsForBook(ctx context.Context, bookID int64) error {
	query := "DELETE FROM student_songs WHERE song_template_id IN (SELECT id FROM song_templates WHERE book_template_id = ?)"
	if _, err := r.db.ExecContext(ctx, query, bookID); err != nil {
		return fmt.Errorf("failed to delete book student songs: %w", err)
	}
	return nil
}

// DeleteStudentSongsForStudent deletes every song instance of a student
func (r *StudentSongRepository) DeleteStudentSongsForStudent(ctx context.Context, studentID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM student_songs WHERE student_id = ?", studentID); err != nil {
		return fmt.Errorf("failed to delete student songs: %w", err)
	}
	return nil
}
