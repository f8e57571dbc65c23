package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// AssignmentService links students to books and keeps their song instances in step
type AssignmentService struct {
	Deps
	now func() time.Time
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(deps Deps) *AssignmentService {
	return &AssignmentService{Deps: deps, now: time.Now}
}

// AssignBook assigns a book to a student and creates one fresh song instance per
// song in the book. The assignment and its songs are written in one transaction.
func (s *AssignmentService) AssignBook(ctx context.Context, studentID, bookID int64) (result *models.BookAssignment, err error) {
	defer func() {
		s.finish("assign_book", err, zap.Int64("student_id", studentID), zap.Int64("book_id", bookID))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Student(ctx, tx, teacherID, studentID); err != nil {
			return err
		}
		if _, err := s.Guard.Book(ctx, tx, teacherID, bookID); err != nil {
			return err
		}

		assignments := repository.NewAssignmentRepository(tx)
		existing, err := assignments.GetAssignment(ctx, studentID, bookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyAssigned
		}

		result, err = assignments.CreateAssignment(ctx, studentID, bookID)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyAssigned
			}
			return err
		}

		songIDs, err := repository.NewCatalogRepository(tx).GetBookSongIDs(ctx, bookID)
		if err != nil {
			return err
		}

		// stale instances left by an earlier partial removal are dropped before materialising
		if err := repository.NewProgressRepository(tx).DeleteProgressForSongs(ctx, studentID, songIDs); err != nil {
			return err
		}
		songs := repository.NewStudentSongRepository(tx)
		if err := songs.DeleteStudentSongsForSongs(ctx, studentID, songIDs); err != nil {
			return err
		}
		return songs.CreateStudentSongs(ctx, studentID, songIDs)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveBook deletes an assignment together with the student's instances of the
// book's songs and their progress history
func (s *AssignmentService) RemoveBook(ctx context.Context, assignmentID int64) (err error) {
	defer func() { s.finish("remove_book", err, zap.Int64("assignment_id", assignmentID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		a, err := s.Guard.Assignment(ctx, tx, teacherID, assignmentID, true)
		if err != nil {
			return err
		}

		// song list is read while the assignment still exists
		songIDs, err := repository.NewCatalogRepository(tx).GetBookSongIDs(ctx, a.BookTemplateID)
		if err != nil {
			return err
		}
		if err := repository.NewProgressRepository(tx).DeleteProgressForSongs(ctx, a.StudentID, songIDs); err != nil {
			return err
		}
		if err := repository.NewStudentSongRepository(tx).DeleteStudentSongsForSongs(ctx, a.StudentID, songIDs); err != nil {
			return err
		}
		return repository.NewAssignmentRepository(tx).DeleteAssignment(ctx, a.ID)
	})
}

// ToggleGraduation flips an assignment's graduation flag. It is not idempotent:
// callers retrying after a failure must re-read the assignment first.
func (s *AssignmentService) ToggleGraduation(ctx context.Context, assignmentID int64) (result *models.BookAssignment, err error) {
	defer func() { s.finish("toggle_graduation", err, zap.Int64("assignment_id", assignmentID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		a, err := s.Guard.Assignment(ctx, tx, teacherID, assignmentID, true)
		if err != nil {
			return err
		}
		a.ToggleGraduation(s.now().UTC())
		if err := repository.NewAssignmentRepository(tx).UpdateGraduation(ctx, a.ID, a.IsGraduated, a.GraduatedAt); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StudentAssignments lists a student's assignments in book number order
func (s *AssignmentService) StudentAssignments(ctx context.Context, studentID int64) (list []models.BookAssignment, err error) {
	defer func() { s.observe("student_assignments", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Guard.Student(ctx, s.DB, teacherID, studentID); err != nil {
		return nil, err
	}
	list, err = repository.NewAssignmentRepository(s.DB).GetStudentAssignments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}
