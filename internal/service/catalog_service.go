package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// CatalogService manages book and song templates
type CatalogService struct {
	Deps
}

// NewCatalogService creates a new catalog service
func NewCatalogService(deps Deps) *CatalogService {
	return &CatalogService{Deps: deps}
}

// CreateBook creates a book owned by the acting teacher together with its ordered songs
func (s *CatalogService) CreateBook(ctx context.Context, in models.NewBook) (result *models.BookWithSongs, err error) {
	defer func() {
		s.finish("create_book", err, zap.Int("number", in.Number))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Songs = append([]models.NewSong(nil), in.Songs...)
	for i := range in.Songs {
		in.Songs[i].Title = strings.TrimSpace(in.Songs[i].Title)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		catalog := repository.NewCatalogRepository(tx)

		taken, err := catalog.IsNumberTaken(ctx, teacherID, in.Number, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateNumber
		}

		book, err := catalog.CreateBook(ctx, teacherID, in.Title, in.Number, in.CoverImage)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateNumber
			}
			return err
		}

		result = &models.BookWithSongs{Book: *book, Songs: []models.SongTemplate{}}
		for i, song := range in.Songs {
			created, err := catalog.AddSong(ctx, book.ID, song.Title, i+1)
			if err != nil {
				return err
			}
			result.Songs = append(result.Songs, *created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBook returns a book with its songs and the acting teacher's students holding it
func (s *CatalogService) GetBook(ctx context.Context, bookID int64) (result *models.BookDetail, err error) {
	defer func() { s.observe("get_book", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.Guard.Book(ctx, s.DB, teacherID, bookID)
	if err != nil {
		return nil, err
	}

	songs, err := repository.NewCatalogRepository(s.DB).GetBookSongs(ctx, bookID)
	if err != nil {
		return nil, err
	}
	holders, err := repository.NewAssignmentRepository(s.DB).GetBookStudents(ctx, bookID)
	if err != nil {
		return nil, err
	}

	students := []models.Student{}
	for _, st := range holders {
		if st.TeacherID == teacherID {
			students = append(students, st)
		}
	}

	return &models.BookDetail{
		BookWithSongs: models.BookWithSongs{Book: *book, Songs: nonNil(songs)},
		Students:      students,
	}, nil
}

// ListBooks lists the catalog ordered by number, each book with its songs and assignment count
func (s *CatalogService) ListBooks(ctx context.Context) (books []models.BookSummary, err error) {
	defer func() { s.observe("list_books", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}

	catalog := repository.NewCatalogRepository(s.DB)
	books, err = catalog.GetBooksWithAssignmentCounts(ctx, s.Guard.catalogOwner(teacherID))
	if err != nil {
		return nil, err
	}
	for i := range books {
		songs, err := catalog.GetBookSongs(ctx, books[i].Book.ID)
		if err != nil {
			return nil, err
		}
		books[i].Songs = nonNil(songs)
	}
	return nonNil(books), nil
}

// NextBookNumber suggests the number for the acting teacher's next book
func (s *CatalogService) NextBookNumber(ctx context.Context) (next int, err error) {
	defer func() { s.observe("next_book_number", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return 0, err
	}
	maxNumber, err := repository.NewCatalogRepository(s.DB).GetMaxBookNumber(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

// IsNumberAvailable reports whether the acting teacher can use number,
// ignoring the book excludeID (0 to ignore none)
func (s *CatalogService) IsNumberAvailable(ctx context.Context, number int, excludeID int64) (available bool, err error) {
	defer func() { s.observe("is_number_available", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return false, err
	}
	taken, err := repository.NewCatalogRepository(s.DB).IsNumberTaken(ctx, teacherID, number, excludeID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// UpdateBook changes a book's title, number or cover. A new number must be free
// among the books of the book's owner.
func (s *CatalogService) UpdateBook(ctx context.Context, bookID int64, upd models.BookUpdate) (result *models.BookTemplate, err error) {
	defer func() { s.finish("update_book", err, zap.Int64("book_id", bookID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(upd); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		book, err := s.Guard.Book(ctx, tx, teacherID, bookID)
		if err != nil {
			return err
		}
		catalog := repository.NewCatalogRepository(tx)

		if upd.Number != nil && *upd.Number != book.Number {
			taken, err := catalog.IsNumberTaken(ctx, book.TeacherID, *upd.Number, book.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateNumber
			}
			book.Number = *upd.Number
		}
		if upd.Title != nil {
			book.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.CoverImage != nil {
			book.CoverImage = *upd.CoverImage
		}

		if err := catalog.UpdateBook(ctx, book); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateNumber
			}
			return err
		}
		result = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RenumberBook moves a book to newNumber
func (s *CatalogService) RenumberBook(ctx context.Context, bookID int64, newNumber int) (*models.BookTemplate, error) {
	return s.UpdateBook(ctx, bookID, models.BookUpdate{Number: &newNumber})
}

// DeleteBook deletes a book and its songs. Books that any student still holds are
// refused with a *HasAssignmentsError.
func (s *CatalogService) DeleteBook(ctx context.Context, bookID int64) (err error) {
	defer func() { s.finish("delete_book", err, zap.Int64("book_id", bookID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Book(ctx, tx, teacherID, bookID); err != nil {
			return err
		}

		count, err := repository.NewAssignmentRepository(tx).CountBookAssignments(ctx, bookID)
		if err != nil {
			return err
		}
		if count > 0 {
			return &HasAssignmentsError{Count: count}
		}

		// unassigned instances can exist from the find-or-create toggle path
		if err := repository.NewProgressRepository(tx).DeleteProgressForBook(ctx, bookID); err != nil {
			return err
		}
		if err := repository.NewStudentSongRepository(tx).DeleteStudentSongsForBook(ctx, bookID); err != nil {
			return err
		}

		catalog := repository.NewCatalogRepository(tx)
		if err := catalog.DeleteBookSongs(ctx, bookID); err != nil {
			return err
		}
		return catalog.DeleteBook(ctx, bookID)
	})
}

// AddSong appends a song to a book at position song count + 1
func (s *CatalogService) AddSong(ctx context.Context, bookID int64, title string) (result *models.SongTemplate, err error) {
	defer func() { s.finish("add_song", err, zap.Int64("book_id", bookID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	in := models.NewSong{Title: strings.TrimSpace(title)}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Book(ctx, tx, teacherID, bookID); err != nil {
			return err
		}
		catalog := repository.NewCatalogRepository(tx)
		count, err := catalog.GetSongCount(ctx, bookID)
		if err != nil {
			return err
		}
		result, err = catalog.AddSong(ctx, bookID, in.Title, count+1)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateSong renames a song
func (s *CatalogService) UpdateSong(ctx context.Context, songID int64, title string) (result *models.SongTemplate, err error) {
	defer func() { s.finish("update_song", err, zap.Int64("song_id", songID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	in := models.NewSong{Title: strings.TrimSpace(title)}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		song, _, err := s.Guard.Song(ctx, tx, teacherID, songID)
		if err != nil {
			return err
		}
		if err := repository.NewCatalogRepository(tx).UpdateSongTitle(ctx, songID, in.Title); err != nil {
			return err
		}
		song.Title = in.Title
		result = song
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteSong deletes a song. Songs any student has an instance of are refused
// with a *SongInUseError. Remaining songs keep their positions.
func (s *CatalogService) DeleteSong(ctx context.Context, songID int64) (err error) {
	defer func() { s.finish("delete_song", err, zap.Int64("song_id", songID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, _, err := s.Guard.Song(ctx, tx, teacherID, songID); err != nil {
			return err
		}
		count, err := repository.NewStudentSongRepository(tx).CountSongInstances(ctx, songID)
		if err != nil {
			return err
		}
		if count > 0 {
			return &SongInUseError{Count: count}
		}
		return repository.NewCatalogRepository(tx).DeleteSong(ctx, songID)
	})
}

// ResequenceSongs renumbers a book's songs 1..N keeping their relative order
func (s *CatalogService) ResequenceSongs(ctx context.Context, bookID int64) (err error) {
	defer func() { s.finish("resequence_songs", err, zap.Int64("book_id", bookID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Book(ctx, tx, teacherID, bookID); err != nil {
			return err
		}
		catalog := repository.NewCatalogRepository(tx)
		ids, err := catalog.GetBookSongIDs(ctx, bookID)
		if err != nil {
			return err
		}
		return setPositions(ctx, catalog, ids)
	})
}

// ReorderSongs sets the song order of a book; songIDs must list every song of the book once
func (s *CatalogService) ReorderSongs(ctx context.Context, bookID int64, songIDs []int64) (err error) {
	defer func() { s.finish("reorder_songs", err, zap.Int64("book_id", bookID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.Book(ctx, tx, teacherID, bookID); err != nil {
			return err
		}
		catalog := repository.NewCatalogRepository(tx)
		current, err := catalog.GetBookSongIDs(ctx, bookID)
		if err != nil {
			return err
		}
		if !samePermutation(current, songIDs) {
			return fmt.Errorf("%w: song order must list each of the book's %d songs exactly once", ErrValidation, len(current))
		}
		return setPositions(ctx, catalog, songIDs)
	})
}

// AvailableBooksForStudent lists catalog books the student does not hold yet
func (s *CatalogService) AvailableBooksForStudent(ctx context.Context, studentID int64) (books []models.BookTemplate, err error) {
	defer func() { s.observe("available_books", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Guard.Student(ctx, s.DB, teacherID, studentID); err != nil {
		return nil, err
	}
	books, err = repository.NewCatalogRepository(s.DB).GetAvailableBooksForStudent(ctx, studentID, s.Guard.catalogOwner(teacherID))
	if err != nil {
		return nil, err
	}
	return nonNil(books), nil
}

func setPositions(ctx context.Context, catalog *repository.CatalogRepository, songIDs []int64) error {
	for i, id := range songIDs {
		if err := catalog.UpdateSongPosition(ctx, id, i+1); err != nil {
			return err
		}
	}
	return nil
}

func samePermutation(current, proposed []int64) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[int64]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range proposed {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}

// nonNil turns a nil slice into an empty one so JSON renders [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
