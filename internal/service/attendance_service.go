package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// AttendanceService records which days students attended
type AttendanceService struct {
	Deps
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(deps Deps) *AttendanceService {
	return &AttendanceService{Deps: deps}
}

// MarkAttendance sets presence for a student on date's calendar day, overwriting any earlier mark
func (s *AttendanceService) MarkAttendance(ctx context.Context, studentID int64, date time.Time, present bool) (result *models.Attendance, err error) {
	day := models.NormalizeDate(date)
	defer func() {
		s.finish("mark_attendance", err, zap.Int64("student_id", studentID),
			zap.String("date", day.Format(time.DateOnly)), zap.Bool("present", present))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Student(ctx, tx, teacherID, studentID); err != nil {
			return err
		}
		attendance := repository.NewAttendanceRepository(tx)
		if err := attendance.UpsertAttendance(ctx, studentID, day, present); err != nil {
			return err
		}
		result, err = attendance.GetAttendance(ctx, studentID, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnmarkAttendance clears a student's record for date's calendar day. Clearing a day
// with no record is not an error.
func (s *AttendanceService) UnmarkAttendance(ctx context.Context, studentID int64, date time.Time) (err error) {
	day := models.NormalizeDate(date)
	defer func() {
		s.finish("unmark_attendance", err, zap.Int64("student_id", studentID), zap.String("date", day.Format(time.DateOnly)))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Student(ctx, tx, teacherID, studentID); err != nil {
			return err
		}
		_, err := repository.NewAttendanceRepository(tx).DeleteAttendance(ctx, studentID, day)
		return err
	})
}

// MonthlyReport lists the acting teacher's attendance records in one month, by date ascending
func (s *AttendanceService) MonthlyReport(ctx context.Context, year int, month time.Month) (entries []models.AttendanceEntry, err error) {
	defer func() { s.observe("monthly_report", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d out of range", ErrValidation, month)
	}

	from, to := models.MonthRange(year, month)
	entries, err = repository.NewAttendanceRepository(s.DB).GetTeacherAttendance(ctx, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	return nonNil(entries), nil
}
