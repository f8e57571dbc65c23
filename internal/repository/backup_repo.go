package repository

import (
	"context"
	"fmt"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// BackupRepository reads and writes whole tables for export and restore.
// Inserts keep the original ids so references between tables survive a round trip.
type BackupRepository struct {
	db database.DBTX
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db database.DBTX) *BackupRepository {
	return &BackupRepository{db: db}
}

// BackupTables lists every data table in dependency order
var BackupTables = []string{
	"teachers",
	"students",
	"book_templates",
	"song_templates",
	"book_assignments",
	"student_songs",
	"progress_notes",
	"attendance",
}

func queryAll[T any](ctx context.Context, db database.DBTX, what, query string, scan func(interface{ Scan(...interface{}) error }) (*T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *BackupRepository) AllTeachers(ctx context.Context) ([]models.Teacher, error) {
	return queryAll(ctx, r.db, "teachers", "SELECT "+teacherColumns+" FROM teachers ORDER BY id", scanTeacher)
}

func (r *BackupRepository) AllStudents(ctx context.Context) ([]models.Student, error) {
	return queryAll(ctx, r.db, "students", "SELECT "+studentColumns+" FROM students s ORDER BY s.id",
		func(row interface{ Scan(...interface{}) error }) (*models.Student, error) { return scanStudent(row) })
}

func (r *BackupRepository) AllBooks(ctx context.Context) ([]models.BookTemplate, error) {
	return queryAll(ctx, r.db, "books", "SELECT "+bookColumns+" FROM book_templates b ORDER BY b.id",
		func(row interface{ Scan(...interface{}) error }) (*models.BookTemplate, error) { return scanBook(row) })
}

func (r *BackupRepository) AllSongs(ctx context.Context) ([]models.SongTemplate, error) {
	return queryAll(ctx, r.db, "songs", "SELECT "+songColumns+" FROM song_templates ORDER BY id", scanSong)
}

func (r *BackupRepository) AllAssignments(ctx context.Context) ([]models.BookAssignment, error) {
	return queryAll(ctx, r.db, "assignments", "SELECT "+assignmentColumns+" FROM book_assignments ORDER BY id", scanAssignment)
}

func (r *BackupRepository) AllStudentSongs(ctx context.Context) ([]models.StudentSong, error) {
	return queryAll(ctx, r.db, "student songs", "SELECT "+studentSongColumns+" FROM student_songs ss ORDER BY ss.id", scanStudentSong)
}

func (r *BackupRepository) AllProgressNotes(ctx context.Context) ([]models.ProgressNote, error) {
	return queryAll(ctx, r.db, "progress notes", "SELECT "+progressColumns+" FROM progress_notes ORDER BY id", scanProgressNote)
}

func (r *BackupRepository) AllAttendance(ctx context.Context) ([]models.Attendance, error) {
	return queryAll(ctx, r.db, "attendance", "SELECT "+attendanceColumns+" FROM attendance a ORDER BY a.id",
		func(row interface{ Scan(...interface{}) error }) (*models.Attendance, error) { return scanAttendance(row) })
}

// Clear deletes every row of every data table, children first
func (r *BackupRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM password_resets"); err != nil {
		return fmt.Errorf("failed to clear password_resets: %w", err)
	}
	for i := len(BackupTables) - 1; i >= 0; i-- {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM "+BackupTables[i]); err != nil {
			return fmt.Errorf("failed to clear %s: %w", BackupTables[i], err)
		}
	}
	return nil
}

// ResetSequences moves every id generator past the restored ids
func (r *BackupRepository) ResetSequences(ctx context.Context) error {
	for _, table := range BackupTables {
		query := r.db.GetDialect().ResetSequenceQuery(table)
		if query == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

func (r *BackupRepository) exec(ctx context.Context, what, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to restore %s: %w", what, err)
	}
	return nil
}

func (r *BackupRepository) InsertTeacher(ctx context.Context, t *models.Teacher) error {
	return r.exec(ctx, "teacher", `
		INSERT INTO teachers (id, email, password_hash, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Email, t.PasswordHash, t.Name, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
}

func (r *BackupRepository) InsertStudent(ctx context.Context, s *models.Student) error {
	return r.exec(ctx, "student", `
		INSERT INTO students (id, teacher_id, name, date_of_birth, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.TeacherID, s.Name, timeArg(s.DateOfBirth), s.Notes, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
}

func (r *BackupRepository) InsertBook(ctx context.Context, b *models.BookTemplate) error {
	return r.exec(ctx, "book", `
		INSERT INTO book_templates (id, teacher_id, title, number, cover_image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.TeacherID, b.Title, b.Number, b.CoverImage, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
}

func (r *BackupRepository) InsertSong(ctx context.Context, s *models.SongTemplate) error {
	return r.exec(ctx, "song", `
		INSERT INTO song_templates (id, book_template_id, title, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.BookTemplateID, s.Title, s.Position, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
}

func (r *BackupRepository) InsertAssignment(ctx context.Context, a *models.BookAssignment) error {
	return r.exec(ctx, "assignment", `
		INSERT INTO book_assignments (id, student_id, book_template_id, is_graduated, graduated_at, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.StudentID, a.BookTemplateID, a.IsGraduated, timeArg(a.GraduatedAt), a.AssignedAt.UTC())
}

func (r *BackupRepository) InsertStudentSong(ctx context.Context, s *models.StudentSong) error {
	return r.exec(ctx, "student song", `
		INSERT INTO student_songs (id, student_id, song_template_id, learned_left, learned_right, learned_both,
			completed, notes, image_url, audio_url, video_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.StudentID, s.SongTemplateID, s.Left, s.Right, s.Both, s.Completed,
		s.Notes, s.ImageURL, s.AudioURL, s.VideoURL, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
}

func (r *BackupRepository) InsertProgressNote(ctx context.Context, p *models.ProgressNote) error {
	return r.exec(ctx, "progress note", `
		INSERT INTO progress_notes (id, student_song_id, left_hand, right_hand, both_hands, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.StudentSongID, p.LeftHand, p.RightHand, p.BothHands, p.Note, p.CreatedAt.UTC())
}

func (r *BackupRepository) InsertAttendance(ctx context.Context, a *models.Attendance) error {
	return r.exec(ctx, "attendance", `
		INSERT INTO attendance (id, student_id, date, present, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.StudentID, a.Date.UTC(), a.Present, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
}
