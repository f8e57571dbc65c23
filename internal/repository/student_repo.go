package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// StudentRepository handles database operations for students
type StudentRepository struct {
	db database.DBTX
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db database.DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

// CreateStudent creates a new student owned by teacherID
func (r *StudentRepository) CreateStudent(ctx context.Context, teacherID int64, name string, dob *time.Time, notes string) (*models.Student, error) {
	ts := now()
	query := `
		INSERT INTO students (teacher_id, name, date_of_birth, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, teacherID, name, timeArg(dob), notes, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	return &models.Student{
		ID:          id,
		TeacherID:   teacherID,
		Name:        name,
		DateOfBirth: dob,
		Notes:       notes,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

const studentColumns = "s.id, s.teacher_id, s.name, s.date_of_birth, s.notes, s.created_at, s.updated_at"

func scanStudent(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*models.Student, error) {
	s := &models.Student{}
	var dob sql.NullTime
	dest := append([]interface{}{&s.ID, &s.TeacherID, &s.Name, &dob, &s.Notes, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.DateOfBirth = nullTimePtr(dob)
	return s, nil
}

// GetStudentByID retrieves a student by ID
func (r *StudentRepository) GetStudentByID(ctx context.Context, id int64) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students s WHERE s.id = ?"
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// GetTeacherStudents retrieves all students of a teacher ordered by name, with book counts
func (r *StudentRepository) GetTeacherStudents(ctx context.Context, teacherID int64) ([]models.StudentSummary, error) {
	query := `
		SELECT ` + studentColumns + `,
			COALESCE(SUM(CASE WHEN ba.id IS NOT NULL AND ba.is_graduated = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ba.is_graduated = ? THEN 1 ELSE 0 END), 0)
		FROM students s
		LEFT JOIN book_assignments ba ON ba.student_id = s.id
		WHERE s.teacher_id = ?
		GROUP BY s.id, s.teacher_id, s.name, s.date_of_birth, s.notes, s.created_at, s.updated_at
		ORDER BY s.name ASC, s.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, false, true, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []models.StudentSummary
	for rows.Next() {
		var active, graduated int
		s, err := scanStudent(rows, &active, &graduated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, models.StudentSummary{Student: *s, ActiveBooks: active, GraduatedBooks: graduated})
	}

	return students, rows.Err()
}

// UpdateStudent updates a student's profile fields
func (r *StudentRepository) UpdateStudent(ctx context.Context, id int64, name string, dob *time.Time, notes string) error {
	query := "UPDATE students SET name = ?, date_of_birth = ?, notes = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, name, timeArg(dob), notes, now(), id); err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return nil
}

// DeleteStudent deletes the student row only; dependents are cleaned up by the caller
func (r *StudentRepository) DeleteStudent(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return nil
}
