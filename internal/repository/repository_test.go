package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suzukitracker/internal/database"
	"suzukitracker/internal/database/dbtest"
	"suzukitracker/internal/models"
)

type fixture struct {
	db          *database.DB
	teacherID   int64
	students    *StudentRepository
	catalog     *CatalogRepository
	assignments *AssignmentRepository
	songs       *StudentSongRepository
	progress    *ProgressRepository
	attendance  *AttendanceRepository
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.New(t)
	return &fixture{
		db:          db,
		teacherID:   dbtest.Teacher(t, db, "teacher@example.com"),
		students:    NewStudentRepository(db),
		catalog:     NewCatalogRepository(db),
		assignments: NewAssignmentRepository(db),
		songs:       NewStudentSongRepository(db),
		progress:    NewProgressRepository(db),
		attendance:  NewAttendanceRepository(db),
	}
}

func (f *fixture) book(t *testing.T, number int, songs ...string) (*models.BookTemplate, []int64) {
	ctx := context.Background()
	b, err := f.catalog.CreateBook(ctx, f.teacherID, "Book", number, "")
	require.NoError(t, err)
	var ids []int64
	for i, title := range songs {
		s, err := f.catalog.AddSong(ctx, b.ID, title, i+1)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	return b, ids
}

func TestTeacherRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewTeacherRepository(db)
	ctx := context.Background()

	created, err := repo.CreateTeacher(ctx, "a@example.com", "hash", "A")
	require.NoError(t, err)

	got, err := repo.GetTeacherByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := repo.GetTeacherByID(ctx, created.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.CreateTeacher(ctx, "a@example.com", "hash", "Again")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	t.Run("password reset is single use", func(t *testing.T) {
		require.NoError(t, repo.CreatePasswordReset(ctx, created.ID, "tokenhash", time.Now().Add(time.Hour)))

		reset, err := repo.GetPasswordReset(ctx, "tokenhash")
		require.NoError(t, err)
		require.NotNil(t, reset)
		assert.True(t, reset.IsUsable())

		ok, err := repo.MarkPasswordResetUsed(ctx, reset.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkPasswordResetUsed(ctx, reset.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStudentRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dob := time.Date(2015, 4, 2, 0, 0, 0, 0, time.UTC)
	bea, err := f.students.CreateStudent(ctx, f.teacherID, "Bea", &dob, "")
	require.NoError(t, err)
	_, err = f.students.CreateStudent(ctx, f.teacherID, "Ana", nil, "loves Minuet")
	require.NoError(t, err)

	got, err := f.students.GetStudentByID(ctx, bea.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DateOfBirth)
	assert.True(t, dob.Equal(*got.DateOfBirth))

	b, _ := f.book(t, 1)
	_, err = f.assignments.CreateAssignment(ctx, bea.ID, b.ID)
	require.NoError(t, err)

	list, err := f.students.GetTeacherStudents(ctx, f.teacherID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Equal(t, 0, list[0].ActiveBooks)
	assert.Equal(t, "Bea", list[1].Name)
	assert.Equal(t, 1, list[1].ActiveBooks)
}

func TestCatalogRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, songIDs := f.book(t, 3, "Twinkle", "Lightly Row", "Song of the Wind")

	taken, err := f.catalog.IsNumberTaken(ctx, f.teacherID, 3, 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = f.catalog.IsNumberTaken(ctx, f.teacherID, 3, b.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = f.catalog.CreateBook(ctx, f.teacherID, "Dup", 3, "")
	assert.True(t, database.IsUniqueViolation(err))

	maxNumber, err := f.catalog.GetMaxBookNumber(ctx, f.teacherID)
	require.NoError(t, err)
	assert.Equal(t, 3, maxNumber)

	songs, err := f.catalog.GetBookSongs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, songs, 3)
	assert.Equal(t, "Twinkle", songs[0].Title)
	assert.Equal(t, songIDs[2], songs[2].ID)

	require.NoError(t, f.catalog.UpdateSongPosition(ctx, songIDs[0], 4))
	ids, err := f.catalog.GetBookSongIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{songIDs[1], songIDs[2], songIDs[0]}, ids)

	other := dbtest.Teacher(t, f.db, "other@example.com")
	_, err = f.catalog.CreateBook(ctx, other, "Other", 3, "")
	require.NoError(t, err, "numbers are unique per teacher only")

	all, err := f.catalog.GetBooksWithAssignmentCounts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.catalog.GetBooksWithAssignmentCounts(ctx, f.teacherID)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestStudentSongRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student, err := f.students.CreateStudent(ctx, f.teacherID, "Ana", nil, "")
	require.NoError(t, err)
	_, songIDs := f.book(t, 1, "A", "B")

	require.NoError(t, f.songs.CreateStudentSongs(ctx, student.ID, songIDs))

	t.Run("ensure is idempotent", func(t *testing.T) {
		require.NoError(t, f.songs.EnsureStudentSong(ctx, student.ID, songIDs[0]))
		count, err := f.songs.CountSongInstances(ctx, songIDs[0])
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("flags and media", func(t *testing.T) {
		ss, err := f.songs.GetStudentSong(ctx, student.ID, songIDs[1], false)
		require.NoError(t, err)
		require.NotNil(t, ss)
		assert.Equal(t, models.Flags{}, ss.Flags)

		require.NoError(t, f.songs.UpdateFlags(ctx, ss.ID, models.Flags{Left: true, Completed: true}))
		require.NoError(t, f.songs.UpdateMedia(ctx, ss.ID, models.MediaAudio, "/uploads/a.mp3"))
		require.Error(t, f.songs.UpdateMedia(ctx, ss.ID, models.MediaKind("video"), "x"))

		ss, err = f.songs.GetStudentSongByID(ctx, ss.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.Flags{Left: true, Completed: true}, ss.Flags)
		assert.Equal(t, "/uploads/a.mp3", ss.AudioURL)
	})

	t.Run("delete for songs removes progress first", func(t *testing.T) {
		ss, err := f.songs.GetStudentSong(ctx, student.ID, songIDs[0], false)
		require.NoError(t, err)
		_, err = f.progress.CreateProgressNote(ctx, ss.ID, 10, 20, 30, "")
		require.NoError(t, err)

		require.NoError(t, f.progress.DeleteProgressForSongs(ctx, student.ID, songIDs))
		require.NoError(t, f.songs.DeleteStudentSongsForSongs(ctx, student.ID, songIDs))

		left, err := f.songs.GetStudentSongs(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, left)

		notes, err := f.progress.GetProgressNotes(ctx, ss.ID)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestProgressRepositoryOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student, err := f.students.CreateStudent(ctx, f.teacherID, "Ana", nil, "")
	require.NoError(t, err)
	_, songIDs := f.book(t, 1, "A")
	require.NoError(t, f.songs.EnsureStudentSong(ctx, student.ID, songIDs[0]))
	ss, err := f.songs.GetStudentSong(ctx, student.ID, songIDs[0], false)
	require.NoError(t, err)

	first, err := f.progress.CreateProgressNote(ctx, ss.ID, 10, 10, 0, "first")
	require.NoError(t, err)
	second, err := f.progress.CreateProgressNote(ctx, ss.ID, 50, 40, 20, "second")
	require.NoError(t, err)

	notes, err := f.progress.GetProgressNotes(ctx, ss.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)
	assert.Equal(t, first.ID, notes[1].ID)
}

func TestAttendanceRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana, err := f.students.CreateStudent(ctx, f.teacherID, "Ana", nil, "")
	require.NoError(t, err)

	march5 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	march1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april1 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.attendance.UpsertAttendance(ctx, ana.ID, march5, true))
	require.NoError(t, f.attendance.UpsertAttendance(ctx, ana.ID, march5, false))
	require.NoError(t, f.attendance.UpsertAttendance(ctx, ana.ID, march1, true))
	require.NoError(t, f.attendance.UpsertAttendance(ctx, ana.ID, april1, true))

	got, err := f.attendance.GetAttendance(ctx, ana.ID, march5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Present)

	entries, err := f.attendance.GetTeacherAttendance(ctx, f.teacherID, march1, april1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Date.Equal(march1))
	assert.True(t, entries[1].Date.Equal(march5))
	assert.Equal(t, "Ana", entries[0].StudentName)

	deleted, err := f.attendance.DeleteAttendance(ctx, ana.ID, march5)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.attendance.DeleteAttendance(ctx, ana.ID, march5)
	require.NoError(t, err)
	assert.False(t, deleted)
}
