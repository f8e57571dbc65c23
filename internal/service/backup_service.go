package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/models"
	"suzukitracker/internal/repository"
)

// BackupVersion is the format version written by Export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	DatabaseType string                  `json:"database_type"`
	Teachers     []TeacherBackup         `json:"teachers"`
	Students     []models.Student        `json:"students"`
	Books        []models.BookTemplate   `json:"books"`
	Songs        []models.SongTemplate   `json:"songs"`
	Assignments  []models.BookAssignment `json:"assignments"`
	StudentSongs []models.StudentSong    `json:"student_songs"`
	Progress     []models.ProgressNote   `json:"progress"`
	Attendance   []models.Attendance     `json:"attendance"`
}

// TeacherBackup is a teacher account including its password hash
type TeacherBackup struct {
	models.Teacher
	PasswordHash string `json:"password_hash"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *zap.Logger) *BackupService {
	return &BackupService{db: db, log: log}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	return file.Sync()
}

// ExportToWriter writes a backup of every table as indented JSON.
// All tables are read in one transaction so the snapshot is consistent.
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewBackupRepository(tx)
		teachers, err := repo.AllTeachers(ctx)
		if err != nil {
			return err
		}
		backup.Teachers = make([]TeacherBackup, len(teachers))
		for i, t := range teachers {
			backup.Teachers[i] = TeacherBackup{Teacher: t, PasswordHash: t.PasswordHash}
		}
		if backup.Students, err = repo.AllStudents(ctx); err != nil {
			return err
		}
		if backup.Books, err = repo.AllBooks(ctx); err != nil {
			return err
		}
		if backup.Songs, err = repo.AllSongs(ctx); err != nil {
			return err
		}
		if backup.Assignments, err = repo.AllAssignments(ctx); err != nil {
			return err
		}
		if backup.StudentSongs, err = repo.AllStudentSongs(ctx); err != nil {
			return err
		}
		if backup.Progress, err = repo.AllProgressNotes(ctx); err != nil {
			return err
		}
		backup.Attendance, err = repo.AllAttendance(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("export completed", backupFields(backup)...)
	return nil
}

// Import restores the database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader replaces all data with the contents of a backup.
// The restore runs in one transaction; any failure leaves the database untouched.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("%w: failed to decode backup: %v", ErrValidation, err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported backup version %q", ErrValidation, backup.Version)
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewBackupRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}

		for _, b := range backup.Teachers {
			teacher := b.Teacher
			teacher.PasswordHash = b.PasswordHash
			if err := repo.InsertTeacher(ctx, &teacher); err != nil {
				return err
			}
		}
		for i := range backup.Students {
			if err := repo.InsertStudent(ctx, &backup.Students[i]); err != nil {
				return err
			}
		}
		for i := range backup.Books {
			if err := repo.InsertBook(ctx, &backup.Books[i]); err != nil {
				return err
			}
		}
		for i := range backup.Songs {
			if err := repo.InsertSong(ctx, &backup.Songs[i]); err != nil {
				return err
			}
		}
		for i := range backup.Assignments {
			if err := repo.InsertAssignment(ctx, &backup.Assignments[i]); err != nil {
				return err
			}
		}
		for i := range backup.StudentSongs {
			if err := repo.InsertStudentSong(ctx, &backup.StudentSongs[i]); err != nil {
				return err
			}
		}
		for i := range backup.Progress {
			if err := repo.InsertProgressNote(ctx, &backup.Progress[i]); err != nil {
				return err
			}
		}
		for i := range backup.Attendance {
			if err := repo.InsertAttendance(ctx, &backup.Attendance[i]); err != nil {
				return err
			}
		}

		return repo.ResetSequences(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	s.log.Info("import completed", backupFields(&backup)...)
	return nil
}

func backupFields(b *BackupData) []zap.Field {
	return []zap.Field{
		zap.Int("teachers", len(b.Teachers)),
		zap.Int("students", len(b.Students)),
		zap.Int("books", len(b.Books)),
		zap.Int("songs", len(b.Songs)),
		zap.Int("assignments", len(b.Assignments)),
		zap.Int("student_songs", len(b.StudentSongs)),
		zap.Int("progress", len(b.Progress)),
		zap.Int("attendance", len(b.Attendance)),
	}
}
