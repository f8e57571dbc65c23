package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
)

// AttendanceRepository handles database operations for attendance records
type AttendanceRepository struct {
	db database.DBTX
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db database.DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// UpsertAttendance records presence for (student, day), overwriting any earlier mark.
// date must already be normalised to midnight.
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, studentID int64, date time.Time, present bool) error {
	ts := now()
	cols := []string{"student_id", "date", "present", "created_at", "updated_at"}
	query := r.db.GetDialect().Upsert("attendance", cols, []string{"student_id", "date"}, []string{"present", "updated_at"})
	if _, err := r.db.ExecContext(ctx, query, studentID, date.UTC(), present, ts, ts); err != nil {
		return fmt.Errorf("failed to upsert attendance: %w", err)
	}
	return nil
}

const attendanceColumns = "a.id, a.student_id, a.date, a.present, a.created_at, a.updated_at"

func scanAttendance(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*models.Attendance, error) {
	a := &models.Attendance{}
	dest := append([]interface{}{&a.ID, &a.StudentID, &a.Date, &a.Present, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.Date = a.Date.UTC()
	return a, nil
}

// GetAttendance retrieves the record for (student, day)
func (r *AttendanceRepository) GetAttendance(ctx context.Context, studentID int64, date time.Time) (*models.Attendance, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance a WHERE a.student_id = ? AND a.date = ?"
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, studentID, date.UTC()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// DeleteAttendance removes the record for (student, day) and reports whether one existed
func (r *AttendanceRepository) DeleteAttendance(ctx context.Context, studentID int64, date time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attendance WHERE student_id = ? AND date = ?", studentID, date.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to delete attendance: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, fmt.Errorf("failed to delete attendance: %w", err)
	}
	return n > 0, nil
}

// GetTeacherAttendance lists attendance of a teacher's students in [from, to), by date ascending
func (r *AttendanceRepository) GetTeacherAttendance(ctx context.Context, teacherID int64, from, to time.Time) ([]models.AttendanceEntry, error) {
	query := `
		SELECT ` + attendanceColumns + `, s.name
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.teacher_id = ? AND a.date >= ? AND a.date < ?
		ORDER BY a.date ASC, s.name ASC, a.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, teacherID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var entries []models.AttendanceEntry
	for rows.Next() {
		var name string
		a, err := scanAttendance(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		entries = append(entries, models.AttendanceEntry{Attendance: *a, StudentName: name})
	}

	return entries, rows.Err()
}

// DeleteStudentAttendance deletes every attendance record of a student
func (r *AttendanceRepository) DeleteStudentAttendance(ctx context.Context, studentID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM attendance WHERE student_id = ?", studentID); err != nil {
		return fmt.Errorf("failed to delete student attendance: %w", err)
	}
	return nil
}
