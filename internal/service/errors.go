package service

import (
	"errors"
	"fmt"

	"suzukitracker/internal/metrics"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateNumber = errors.New("book number already in use")
	ErrAlreadyAssigned = errors.New("book already assigned to student")
	ErrInvalidRange    = errors.New("percentage must be between 0 and 100")
	ErrValidation      = errors.New("validation failed")
	ErrHasAssignments  = errors.New("book has assignments")
	ErrSongInUse       = errors.New("song is in use")
)

// HasAssignmentsError blocks deleting a book that students still hold
type HasAssignmentsError struct {
	Count int
}

func (e *HasAssignmentsError) Error() string {
	return fmt.Sprintf("book is assigned to %d student(s); remove the assignments first", e.Count)
}

func (e *HasAssignmentsError) Unwrap() error { return ErrHasAssignments }

// SongInUseError blocks deleting a song that students have progress on
type SongInUseError struct {
	Count int
}

func (e *SongInUseError) Error() string {
	return fmt.Sprintf("song is used by %d student(s)", e.Count)
}

func (e *SongInUseError) Unwrap() error { return ErrSongInUse }

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// Classify maps an operation error to a metrics result label
func Classify(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return metrics.ResultUnauthorized
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrDuplicateNumber), errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, ErrHasAssignments), errors.Is(err, ErrSongInUse), errors.Is(err, ErrEmailTaken):
		return metrics.ResultConflict
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidResetToken):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
