package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// StudentInput is the editable part of a student
type StudentInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Notes       string     `json:"notes" validate:"max=4000"`
}

// StudentService manages the acting teacher's roster
type StudentService struct {
	Deps
}

// NewStudentService creates a new student service
func NewStudentService(deps Deps) *StudentService {
	return &StudentService{Deps: deps}
}

func (in *StudentInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.DateOfBirth != nil {
		dob := models.NormalizeDate(*in.DateOfBirth)
		in.DateOfBirth = &dob
	}
}

// CreateStudent adds a student owned by the acting teacher
func (s *StudentService) CreateStudent(ctx context.Context, in StudentInput) (student *models.Student, err error) {
	defer func() {
		var id int64
		if student != nil {
			id = student.ID
		}
		s.finish("create_student", err, zap.Int64("student_id", id))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	return repository.NewStudentRepository(s.DB).CreateStudent(ctx, teacherID, in.Name, in.DateOfBirth, in.Notes)
}

// UpdateStudent replaces a student's name, date of birth and notes
func (s *StudentService) UpdateStudent(ctx context.Context, studentID int64, in StudentInput) (student *models.Student, err error) {
	defer func() { s.finish("update_student", err, zap.Int64("student_id", studentID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		current, err := s.Guard.Student(ctx, tx, teacherID, studentID)
		if err != nil {
			return err
		}
		if err := repository.NewStudentRepository(tx).UpdateStudent(ctx, studentID, in.Name, in.DateOfBirth, in.Notes); err != nil {
			return err
		}
		current.Name, current.DateOfBirth, current.Notes = in.Name, in.DateOfBirth, in.Notes
		student = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// GetStudent returns one of the acting teacher's students
func (s *StudentService) GetStudent(ctx context.Context, studentID int64) (student *models.Student, err error) {
	defer func() { s.observe("get_student", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	return s.Guard.Student(ctx, s.DB, teacherID, studentID)
}

// ListStudents lists the acting teacher's students by name
func (s *StudentService) ListStudents(ctx context.Context) (students []models.StudentSummary, err error) {
	defer func() { s.observe("list_students", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	students, err = repository.NewStudentRepository(s.DB).GetTeacherStudents(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return nonNil(students), nil
}

// DeleteStudent deletes a student with all progress, song instances, assignments and attendance
func (s *StudentService) DeleteStudent(ctx context.Context, studentID int64) (err error) {
	defer func() { s.finish("delete_student", err, zap.Int64("student_id", studentID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Student(ctx, tx, teacherID, studentID); err != nil {
			return err
		}
		if err := repository.NewProgressRepository(tx).DeleteProgressForStudent(ctx, studentID); err != nil {
			return err
		}
		if err := repository.NewStudentSongRepository(tx).DeleteStudentSongsForStudent(ctx, studentID); err != nil {
			return err
		}
		if err := repository.NewAssignmentRepository(tx).DeleteStudentAssignments(ctx, studentID); err != nil {
			return err
		}
		if err := repository.NewAttendanceRepository(tx).DeleteStudentAttendance(ctx, studentID); err != nil {
			return err
		}
		return repository.NewStudentRepository(tx).DeleteStudent(ctx, studentID)
	})
}

// StudentDetail returns a student with every assigned book, its ordered songs and the
// student's instance of each song (nil where none exists yet)
func (s *StudentService) StudentDetail(ctx context.Context, studentID int64) (detail *models.StudentDetail, err error) {
	defer func() { s.observe("student_detail", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	student, err := s.Guard.Student(ctx, s.DB, teacherID, studentID)
	if err != nil {
		return nil, err
	}

	assignments, err := repository.NewAssignmentRepository(s.DB).GetStudentAssignments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	instances, err := repository.NewStudentSongRepository(s.DB).GetStudentSongs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	bySong := make(map[int64]*models.StudentSong, len(instances))
	for i := range instances {
		bySong[instances[i].SongTemplateID] = &instances[i]
	}

	catalog := repository.NewCatalogRepository(s.DB)
	detail = &models.StudentDetail{Student: *student, Assignments: []models.AssignmentDetail{}}
	for _, a := range assignments {
		book, err := catalog.GetBookByID(ctx, a.BookTemplateID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			continue
		}
		songs, err := catalog.GetBookSongs(ctx, book.ID)
		if err != nil {
			return nil, err
		}

		states := make([]models.SongState, len(songs))
		for i, song := range songs {
			states[i] = models.SongState{Song: song, StudentSong: bySong[song.ID]}
		}
		detail.Assignments = append(detail.Assignments, models.AssignmentDetail{Assignment: a, Book: *book, Songs: states})
	}
	return detail, nil
}
