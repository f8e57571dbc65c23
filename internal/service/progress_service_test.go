package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suzukitracker/internal/models"
)

func assignedSong(t *testing.T, h *harness, ctx context.Context) (*models.Student, *models.StudentSong) {
	ana := h.student(t, ctx, "Ana")
	book := h.book(t, ctx, 1, "Twinkle Variations", "Lightly Row")
	_, err := h.assignments.AssignBook(ctx, ana.ID, book.Book.ID)
	require.NoError(t, err)
	return ana, h.songStates(t, ctx, ana.ID)[0].StudentSong
}

func TestToggleFlag(t *testing.T) {
	h := newHarness(t, false)
	ctx := h.teacher(t, "teacher@example.com")
	_, ss := assignedSong(t, h, ctx)
	ref := SongRef{StudentSongID: ss.ID}

	out, err := h.progress.ToggleFlag(ctx, ref, models.FieldBoth)
	require.NoError(t, err)
	assert.Equal(t, ss.ID, out.StudentSongID)
	assert.True(t, out.NewValue)
	assert.Equal(t, models.Flags{Left: true, Right: true, Both: true}, out.Flags)
	assert.Equal(t, []models.Field{models.FieldBoth, models.FieldLeft, models.FieldRight}, out.Changed)

	stored, err := h.progress.GetStudentSong(ctx, ss.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Flags, stored.Flags)

	// clearing both keeps the hands
	out, err = h.progress.ToggleFlag(ctx, ref, models.FieldBoth)
	require.NoError(t, err)
	assert.Equal(t, models.Flags{Left: true, Right: true}, out.Flags)
	assert.Equal(t, []models.Field{models.FieldBoth}, out.Changed)

	out, err = h.progress.ToggleFlag(ctx, ref, models.FieldCompleted)
	require.NoError(t, err)
	assert.True(t, out.Flags.Completed)

	_, err = h.progress.ToggleFlag(ctx, ref, models.Field("elbow"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.progress.ToggleFlag(ctx, SongRef{StudentSongID: ss.ID + 100}, models.FieldLeft)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.progress.ToggleFlag(ctx, SongRef{}, models.FieldLeft)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestToggleFlagFindOrCreateIsRaceFree(t *testing.T) {
	h := newHarness(t, false)
	ctx := h.teacher(t, "teacher@example.com")
	ana := h.student(t, ctx, "Ana")
	book := h.book(t, ctx, 1, "Twinkle Variations")
	ref := SongRef{StudentID: ana.ID, SongTemplateID: book.Songs[0].ID}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.progress.ToggleFlag(ctx, ref, models.FieldLeft)
			if err != nil {
				errs <- err
				return
			}
			ids <- out.StudentSongID
		}()
	}
	wg.Wait()
	close(errs)
	close(ids)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[int64]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "every toggle must land on the same instance")

	var count int
	require.NoError(t, h.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM student_songs WHERE student_id = ? AND song_template_id = ?", ana.ID, book.Songs[0].ID).Scan(&count))
	assert.Equal(t, 1, count)

	for id := range seen {
		ss, err := h.progress.GetStudentSong(ctx, id)
		require.NoError(t, err)
		assert.False(t, ss.Left, "an even number of toggles leaves the flag off")
	}
}

func TestRecordProgress(t *testing.T) {
	h := newHarness(t, false)
	ctx := h.teacher(t, "teacher@example.com")
	_, ss := assignedSong(t, h, ctx)

	first, err := h.progress.RecordProgress(ctx, ss.ID, 50, 60, 40, "slow bows")
	require.NoError(t, err)
	assert.Equal(t, 50, first.LeftHand)
	assert.Equal(t, "slow bows", first.Note)

	second, err := h.progress.RecordProgress(ctx, ss.ID, 100, 100, 0, "")
	require.NoError(t, err)

	for _, bad := range [][3]int{{-1, 0, 0}, {0, 101, 0}, {0, 0, 250}} {
		_, err := h.progress.RecordProgress(ctx, ss.ID, bad[0], bad[1], bad[2], "")
		require.ErrorIs(t, err, ErrInvalidRange)
	}

	notes, err := h.progress.ListProgress(ctx, ss.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID, "newest first")
	assert.Equal(t, first.ID, notes[1].ID)

	stored, err := h.progress.GetStudentSong(ctx, ss.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Flags{}, stored.Flags, "notes never touch the flags")

	require.NoError(t, h.progress.DeleteProgress(ctx, second.ID))
	require.ErrorIs(t, h.progress.DeleteProgress(ctx, second.ID), ErrNotFound)

	notes, err = h.progress.ListProgress(ctx, ss.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestSongDetailsAndMedia(t *testing.T) {
	h := newHarness(t, false)
	ctx := h.teacher(t, "teacher@example.com")
	_, ss := assignedSong(t, h, ctx)

	updated, err := h.progress.UpdateSongDetails(ctx, ss.ID, SongDetails{Notes: "watch the thumb", VideoURL: "https://example.com/v/1"})
	require.NoError(t, err)
	assert.Equal(t, "watch the thumb", updated.Notes)

	_, err = h.progress.UpdateSongDetails(ctx, ss.ID, SongDetails{VideoURL: "not a url"})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, h.progress.SetSongMedia(ctx, ss.ID, models.MediaImage, "https://cdn.example.com/a.png"))
	require.NoError(t, h.progress.SetSongMedia(ctx, ss.ID, models.MediaAudio, "https://cdn.example.com/a.mp3"))
	require.ErrorIs(t, h.progress.SetSongMedia(ctx, ss.ID, models.MediaKind("pdf"), "x"), ErrValidation)

	stored, err := h.progress.GetStudentSong(ctx, ss.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v/1", stored.VideoURL)
	assert.Equal(t, "https://cdn.example.com/a.png", stored.ImageURL)
	assert.Equal(t, "https://cdn.example.com/a.mp3", stored.AudioURL)
}

func TestProgressAcrossTeachers(t *testing.T) {
	h := newHarness(t, false)
	ctxA := h.teacher(t, "a@example.com")
	ctxB := h.teacher(t, "b@example.com")
	ana, ss := assignedSong(t, h, ctxA)

	note, err := h.progress.RecordProgress(ctxA, ss.ID, 10, 10, 10, "")
	require.NoError(t, err)

	_, err = h.progress.ToggleFlag(ctxB, SongRef{StudentSongID: ss.ID}, models.FieldLeft)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.progress.ToggleFlag(ctxB, SongRef{StudentID: ana.ID, SongTemplateID: ss.SongTemplateID}, models.FieldLeft)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.progress.RecordProgress(ctxB, ss.ID, 10, 10, 10, "")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.progress.ListProgress(ctxB, ss.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, h.progress.DeleteProgress(ctxB, note.ID), ErrUnauthorized)

	stored, err := h.progress.GetStudentSong(ctxA, ss.ID)
	require.NoError(t, err)
	assert.False(t, stored.Left)
}
