package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// AssignmentRepository handles database operations for book assignments
type AssignmentRepository struct {
	db database.DBTX
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db database.DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// CreateAssignment links a student to a book
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, studentID, bookID int64) (*models.BookAssignment, error) {
	ts := now()
	query := `
		INSERT INTO book_assignments (student_id, book_template_id, is_graduated, assigned_at)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, studentID, bookID, false, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	return &models.BookAssignment{
		ID:             id,
		StudentID:      studentID,
		BookTemplateID: bookID,
		AssignedAt:     ts,
	}, nil
}

const assignmentColumns = "id, student_id, book_template_id, is_graduated, graduated_at, assigned_at"

func scanAssignment(row interface{ Scan(...interface{}) error }) (*models.BookAssignment, error) {
	a := &models.BookAssignment{}
	var graduatedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.StudentID, &a.BookTemplateID, &a.IsGraduated, &graduatedAt, &a.AssignedAt); err != nil {
		return nil, err
	}
	a.GraduatedAt = nullTimePtr(graduatedAt)
	return a, nil
}

// GetAssignmentByID retrieves an assignment; lock takes a row lock inside a transaction
func (r *AssignmentRepository) GetAssignmentByID(ctx context.Context, id int64, lock bool) (*models.BookAssignment, error) {
	query := "SELECT " + assignmentColumns + " FROM book_assignments WHERE id = ?" + lockSuffix(r.db, lock)
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetAssignment retrieves the assignment of bookID to studentID
func (r *AssignmentRepository) GetAssignment(ctx context.Context, studentID, bookID int64) (*models.BookAssignment, error) {
	query := "SELECT " + assignmentColumns + " FROM book_assignments WHERE student_id = ? AND book_template_id = ?"
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, studentID, bookID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetStudentAssignments retrieves a student's assignments in book number order
func (r *AssignmentRepository) GetStudentAssignments(ctx context.Context, studentID int64) ([]models.BookAssignment, error) {
	query := `
		SELECT ba.id, ba.student_id, ba.book_template_id, ba.is_graduated, ba.graduated_at, ba.assigned_at
		FROM book_assignments ba
		JOIN book_templates b ON b.id = ba.book_template_id
		WHERE ba.student_id = ?
		ORDER BY b.number ASC, ba.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.BookAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}

	return assignments, rows.Err()
}

// CountBookAssignments returns how many students hold a book
func (r *AssignmentRepository) CountBookAssignments(ctx context.Context, bookID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM book_assignments WHERE book_template_id = ?", bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// GetBookStudents retrieves the students a book is assigned to, ordered by name
func (r *AssignmentRepository) GetBookStudents(ctx context.Context, bookID int64) ([]models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN book_assignments ba ON ba.student_id = s.id
		WHERE ba.book_template_id = ?
		ORDER BY s.name ASC, s.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query book students: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, *s)
	}

	return students, rows.Err()
}

// UpdateGraduation writes the graduation flag and timestamp
func (r *AssignmentRepository) UpdateGraduation(ctx context.Context, id int64, graduated bool, graduatedAt *time.Time) error {
	query := "UPDATE book_assignments SET is_graduated = ?, graduated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, graduated, timeArg(graduatedAt), id); err != nil {
		return fmt.Errorf("failed to update graduation: %w", err)
	}
	return nil
}

// DeleteAssignment deletes an assignment row
func (r *AssignmentRepository) DeleteAssignment(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM book_assignments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// DeleteStudentAssignments deletes every assignment of a student
func (r *AssignmentRepository) DeleteStudentAssignments(ctx context.Context, studentID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM book_assignments WHERE student_id = ?", studentID); err != nil {
		return fmt.Errorf("failed to delete student assignments: %w", err)
	}
	return nil
}
