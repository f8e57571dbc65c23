package repository

import (
	"context"
	"database/sql"
	"fmt"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// CatalogRepository handles database operations for book and song templates
type CatalogRepository struct {
	db database.DBTX
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db database.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const bookColumns = "b.id, b.teacher_id, b.title, b.number, b.cover_image, b.created_at, b.updated_at"

func scanBook(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*models.BookTemplate, error) {
	b := &models.BookTemplate{}
	dest := append([]interface{}{&b.ID, &b.TeacherID, &b.Title, &b.Number, &b.CoverImage, &b.CreatedAt, &b.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBook inserts a book template
func (r *CatalogRepository) CreateBook(ctx context.Context, teacherID int64, title string, number int, coverImage string) (*models.BookTemplate, error) {
	ts := now()
	query := `
		INSERT INTO book_templates (teacher_id, title, number, cover_image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, teacherID, title, number, coverImage, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	return &models.BookTemplate{
		ID:         id,
		TeacherID:  teacherID,
		Title:      title,
		Number:     number,
		CoverImage: coverImage,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}, nil
}

// GetBookByID retrieves a book template by ID
func (r *CatalogRepository) GetBookByID(ctx context.Context, id int64) (*models.BookTemplate, error) {
	query := "SELECT " + bookColumns + " FROM book_templates b WHERE b.id = ?"
	b, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return b, nil
}

// IsNumberTaken reports whether teacherID already owns a book with number,
// ignoring the book excludeID (0 to ignore none)
func (r *CatalogRepository) IsNumberTaken(ctx context.Context, teacherID int64, number int, excludeID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM book_templates WHERE teacher_id = ? AND number = ? AND id <> ?"
	if err := r.db.QueryRowContext(ctx, query, teacherID, number, excludeID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check book number: %w", err)
	}
	return count > 0, nil
}

// GetMaxBookNumber returns the highest book number owned by teacherID, or 0
func (r *CatalogRepository) GetMaxBookNumber(ctx context.Context, teacherID int64) (int, error) {
	var maxNumber int
	query := "SELECT COALESCE(MAX(number), 0) FROM book_templates WHERE teacher_id = ?"
	if err := r.db.QueryRowContext(ctx, query, teacherID).Scan(&maxNumber); err != nil {
		return 0, fmt.Errorf("failed to get max book number: %w", err)
	}
	return maxNumber, nil
}

// GetBooksWithAssignmentCounts lists books ordered by number with how many students hold each.
// ownerID 0 lists every teacher's books.
func (r *CatalogRepository) GetBooksWithAssignmentCounts(ctx context.Context, ownerID int64) ([]models.BookSummary, error) {
	query := `
		SELECT ` + bookColumns + `, COUNT(ba.id)
		FROM book_templates b
		LEFT JOIN book_assignments ba ON ba.book_template_id = b.id
		WHERE (? = 0 OR b.teacher_id = ?)
		GROUP BY b.id, b.teacher_id, b.title, b.number, b.cover_image, b.created_at, b.updated_at
		ORDER BY b.number ASC, b.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []models.BookSummary
	for rows.Next() {
		var count int
		b, err := scanBook(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, models.BookSummary{BookWithSongs: models.BookWithSongs{Book: *b}, AssignmentCount: count})
	}

	return books, rows.Err()
}

// GetAvailableBooksForStudent lists books the student does not hold yet.
// ownerID 0 considers every teacher's books.
func (r *CatalogRepository) GetAvailableBooksForStudent(ctx context.Context, studentID, ownerID int64) ([]models.BookTemplate, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM book_templates b
		WHERE (? = 0 OR b.teacher_id = ?)
		AND NOT EXISTS (
			SELECT 1 FROM book_assignments ba
			WHERE ba.book_template_id = b.id AND ba.student_id = ?
		)
		ORDER BY b.number ASC, b.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, ownerID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query available books: %w", err)
	}
	defer rows.Close()

	var books []models.BookTemplate
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *b)
	}

	return books, rows.Err()
}

// UpdateBook writes a book's title, number and cover
func (r *CatalogRepository) UpdateBook(ctx context.Context, b *models.BookTemplate) error {
	query := "UPDATE book_templates SET title = ?, number = ?, cover_image = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, b.Title, b.Number, b.CoverImage, now(), b.ID); err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// DeleteBook deletes a book template row
func (r *CatalogRepository) DeleteBook(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM book_templates WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

const songColumns = "id, book_template_id, title, position, created_at, updated_at"

func scanSong(row interface{ Scan(...interface{}) error }) (*models.SongTemplate, error) {
	s := &models.SongTemplate{}
	if err := row.Scan(&s.ID, &s.BookTemplateID, &s.Title, &s.Position, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// AddSong inserts a song template at position
func (r *CatalogRepository) AddSong(ctx context.Context, bookID int64, title string, position int) (*models.SongTemplate, error) {
	ts := now()
	query := `
		INSERT INTO song_templates (book_template_id, title, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, bookID, title, position, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to add song: %w", err)
	}

	return &models.SongTemplate{
		ID:             id,
		BookTemplateID: bookID,
		Title:          title,
		Position:       position,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}, nil
}

// GetSongByID retrieves a song template by ID
func (r *CatalogRepository) GetSongByID(ctx context.Context, id int64) (*models.SongTemplate, error) {
	query := "SELECT " + songColumns + " FROM song_templates WHERE id = ?"
	s, err := scanSong(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}
	return s, nil
}

// GetBookSongs retrieves a book's songs in progression order
func (r *CatalogRepository) GetBookSongs(ctx context.Context, bookID int64) ([]models.SongTemplate, error) {
	query := "SELECT " + songColumns + " FROM song_templates WHERE book_template_id = ? ORDER BY position ASC, id ASC"
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []models.SongTemplate
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, *s)
	}

	return songs, rows.Err()
}

// GetBookSongIDs returns the IDs of a book's songs
func (r *CatalogRepository) GetBookSongIDs(ctx context.Context, bookID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM song_templates WHERE book_template_id = ? ORDER BY position ASC, id ASC", bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query song ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan song id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetSongCount returns the number of songs in a book
func (r *CatalogRepository) GetSongCount(ctx context.Context, bookID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM song_templates WHERE book_template_id = ?", bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}

// UpdateSongTitle renames a song
func (r *CatalogRepository) UpdateSongTitle(ctx context.Context, id int64, title string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE song_templates SET title = ?, updated_at = ? WHERE id = ?", title, now(), id); err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	return nil
}

// UpdateSongPosition moves a song within its book
func (r *CatalogRepository) UpdateSongPosition(ctx context.Context, id int64, position int) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE song_templates SET position = ?, updated_at = ? WHERE id = ?", position, now(), id); err != nil {
		return fmt.Errorf("failed to update song position: %w", err)
	}
	return nil
}

// DeleteSong deletes a song template
func (r *CatalogRepository) DeleteSong(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM song_templates WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	return nil
}

// DeleteBookSongs deletes every song of a book
func (r *CatalogRepository) DeleteBookSongs(ctx context.Context, bookID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM song_templates WHERE book_template_id = ?", bookID); err != nil {
		return fmt.Errorf("failed to delete book songs: %w", err)
	}
	return nil
}
