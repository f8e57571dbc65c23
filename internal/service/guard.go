package service

import (
	"context"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// Guard checks that the records an operation touches belong to the acting teacher.
// Every lookup runs on the caller's DBTX so it joins the caller's transaction.
type Guard struct {
	perTeacherCatalog bool
}

// NewGuard creates a guard. perTeacherCatalog restricts books to their owner;
// otherwise the catalog is shared by every signed-in teacher.
func NewGuard(perTeacherCatalog bool) *Guard {
	return &Guard{perTeacherCatalog: perTeacherCatalog}
}

// Student resolves a student owned by teacherID
func (g *Guard) Student(ctx context.Context, db database.DBTX, teacherID, studentID int64) (*models.Student, error) {
	student, err := repository.NewStudentRepository(db).GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, notFound("student")
	}
	if student.TeacherID != teacherID {
		return nil, ErrUnauthorized
	}
	return student, nil
}

// StudentSong resolves a song instance whose student is owned by teacherID
func (g *Guard) StudentSong(ctx context.Context, db database.DBTX, teacherID, studentSongID int64, lock bool) (*models.StudentSong, error) {
	ss, err := repository.NewStudentSongRepository(db).GetStudentSongByID(ctx, studentSongID, lock)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		return nil, notFound("student song")
	}
	if _, err := g.Student(ctx, db, teacherID, ss.StudentID); err != nil {
		return nil, err
	}
	return ss, nil
}

// Assignment resolves a book assignment whose student is owned by teacherID
func (g *Guard) Assignment(ctx context.Context, db database.DBTX, teacherID, assignmentID int64, lock bool) (*models.BookAssignment, error) {
	a, err := repository.NewAssignmentRepository(db).GetAssignmentByID(ctx, assignmentID, lock)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("assignment")
	}
	if _, err := g.Student(ctx, db, teacherID, a.StudentID); err != nil {
		return nil, err
	}
	return a, nil
}

// Book resolves a catalog book visible to teacherID
func (g *Guard) Book(ctx context.Context, db database.DBTX, teacherID, bookID int64) (*models.BookTemplate, error) {
	book, err := repository.NewCatalogRepository(db).GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, notFound("book")
	}
	if g.perTeacherCatalog && book.TeacherID != teacherID {
		return nil, ErrUnauthorized
	}
	return book, nil
}

// Song resolves a catalog song and its book, visible to teacherID
func (g *Guard) Song(ctx context.Context, db database.DBTX, teacherID, songID int64) (*models.SongTemplate, *models.BookTemplate, error) {
	song, err := repository.NewCatalogRepository(db).GetSongByID(ctx, songID)
	if err != nil {
		return nil, nil, err
	}
	if song == nil {
		return nil, nil, notFound("song")
	}
	book, err := g.Book(ctx, db, teacherID, song.BookTemplateID)
	if err != nil {
		return nil, nil, err
	}
	return song, book, nil
}

// catalogOwner is the owner filter for catalog listings: 0 lists every teacher's books
func (g *Guard) catalogOwner(teacherID int64) int64 {
	if g.perTeacherCatalog {
		return teacherID
	}
	return 0
}
