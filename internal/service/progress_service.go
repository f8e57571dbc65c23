package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// SongRef identifies a student's song either by instance ID or by (student, song template).
// The second form creates the instance on first use.
type SongRef struct {
	StudentSongID  int64 `json:"studentSongId"`
	StudentID      int64 `json:"studentId"`
	SongTemplateID int64 `json:"songTemplateId"`
}

// ToggleOutcome is the authoritative state after a flag toggle
type ToggleOutcome struct {
	StudentSongID int64 `json:"studentSongId"`
	models.ToggleResult
}

// SongDetails carries the free-text fields of a student song
type SongDetails struct {
	Notes    string `json:"notes" validate:"max=4000"`
	VideoURL string `json:"videoUrl" validate:"omitempty,url,max=1024"`
}

// ProgressService tracks per-song mastery flags and progress history
type ProgressService struct {
	Deps
}

// NewProgressService creates a new progress service
func NewProgressService(deps Deps) *ProgressService {
	return &ProgressService{Deps: deps}
}

// ToggleFlag flips one mastery flag of a student song. Turning both on also turns
// left and right on. A ref without an instance ID finds or creates the instance.
func (s *ProgressService) ToggleFlag(ctx context.Context, ref SongRef, field models.Field) (result *ToggleOutcome, err error) {
	defer func() {
		s.finish("toggle_flag", err, zap.Int64("student_song_id", ref.StudentSongID),
			zap.Int64("student_id", ref.StudentID), zap.Int64("song_template_id", ref.SongTemplateID),
			zap.String("field", string(field)))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseField(string(field)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		ss, err := s.resolve(ctx, tx, teacherID, ref)
		if err != nil {
			return err
		}

		toggled := ss.Flags.Toggle(field)
		if err := repository.NewStudentSongRepository(tx).UpdateFlags(ctx, ss.ID, toggled.Flags); err != nil {
			return err
		}
		result = &ToggleOutcome{StudentSongID: ss.ID, ToggleResult: toggled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolve locks the referenced instance, provisioning it when addressed by (student, song)
func (s *ProgressService) resolve(ctx context.Context, tx database.DBTX, teacherID int64, ref SongRef) (*models.StudentSong, error) {
	if ref.StudentSongID != 0 {
		return s.Guard.StudentSong(ctx, tx, teacherID, ref.StudentSongID, true)
	}
	if ref.StudentID == 0 || ref.SongTemplateID == 0 {
		return nil, notFound("student song")
	}

	if _, err := s.Guard.Student(ctx, tx, teacherID, ref.StudentID); err != nil {
		return nil, err
	}
	if _, _, err := s.Guard.Song(ctx, tx, teacherID, ref.SongTemplateID); err != nil {
		return nil, err
	}

	songs := repository.NewStudentSongRepository(tx)
	if err := songs.EnsureStudentSong(ctx, ref.StudentID, ref.SongTemplateID); err != nil {
		return nil, err
	}
	ss, err := songs.GetStudentSong(ctx, ref.StudentID, ref.SongTemplateID, true)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		return nil, notFound("student song")
	}
	return ss, nil
}

// RecordProgress appends a progress note. Values must be within 0..100; the
// instance's mastery flags are left untouched.
func (s *ProgressService) RecordProgress(ctx context.Context, studentSongID int64, left, right, both int, note string) (result *models.ProgressNote, err error) {
	defer func() { s.finish("record_progress", err, zap.Int64("student_song_id", studentSongID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range []int{left, right, both} {
		if !models.ValidPercent(v) {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidRange, v)
		}
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.StudentSong(ctx, tx, teacherID, studentSongID, false); err != nil {
			return err
		}
		result, err = repository.NewProgressRepository(tx).CreateProgressNote(ctx, studentSongID, left, right, both, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteProgress removes one progress note; mastery flags are not recomputed
func (s *ProgressService) DeleteProgress(ctx context.Context, progressID int64) (err error) {
	defer func() { s.finish("delete_progress", err, zap.Int64("progress_id", progressID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		progress := repository.NewProgressRepository(tx)
		note, err := progress.GetProgressNoteByID(ctx, progressID)
		if err != nil {
			return err
		}
		if note == nil {
			return notFound("progress note")
		}
		if _, err := s.Guard.StudentSong(ctx, tx, teacherID, note.StudentSongID, false); err != nil {
			return err
		}
		return progress.DeleteProgressNote(ctx, progressID)
	})
}

// ListProgress returns a student song's progress history, newest first
func (s *ProgressService) ListProgress(ctx context.Context, studentSongID int64) (notes []models.ProgressNote, err error) {
	defer func() { s.observe("list_progress", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Guard.StudentSong(ctx, s.DB, teacherID, studentSongID, false); err != nil {
		return nil, err
	}
	notes, err = repository.NewProgressRepository(s.DB).GetProgressNotes(ctx, studentSongID)
	if err != nil {
		return nil, err
	}
	return nonNil(notes), nil
}

// GetStudentSong returns one student song
func (s *ProgressService) GetStudentSong(ctx context.Context, studentSongID int64) (ss *models.StudentSong, err error) {
	defer func() { s.observe("get_student_song", err) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	return s.Guard.StudentSong(ctx, s.DB, teacherID, studentSongID, false)
}

// UpdateSongDetails sets the notes and external video link of a student song
func (s *ProgressService) UpdateSongDetails(ctx context.Context, studentSongID int64, details SongDetails) (result *models.StudentSong, err error) {
	defer func() { s.finish("update_song_details", err, zap.Int64("student_song_id", studentSongID)) }()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(details); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(tx *database.Tx) error {
		ss, err := s.Guard.StudentSong(ctx, tx, teacherID, studentSongID, true)
		if err != nil {
			return err
		}
		if err := repository.NewStudentSongRepository(tx).UpdateDetails(ctx, ss.ID, details.Notes, details.VideoURL); err != nil {
			return err
		}
		ss.Notes = details.Notes
		ss.VideoURL = details.VideoURL
		result = ss
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetSongMedia stores the URL of an uploaded image or audio file on a student song.
// The file itself lives in external storage.
func (s *ProgressService) SetSongMedia(ctx context.Context, studentSongID int64, kind models.MediaKind, url string) (err error) {
	defer func() {
		s.finish("set_song_media", err, zap.Int64("student_song_id", studentSongID), zap.String("kind", string(kind)))
	}()

	teacherID, err := currentTeacher(ctx)
	if err != nil {
		return err
	}
	if kind != models.MediaImage && kind != models.MediaAudio {
		return fmt.Errorf("%w: unknown media kind %q", ErrValidation, kind)
	}

	return s.DB.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := s.Guard.StudentSong(ctx, tx, teacherID, studentSongID, true); err != nil {
			return err
		}
		return repository.NewStudentSongRepository(tx).UpdateMedia(ctx, studentSongID, kind, url)
	})
}
