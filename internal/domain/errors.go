package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is the common parent of every missing-entity error.
	ErrNotFound = errors.New("not found")
	// ErrParticipantNotFound is returned when a participant id does not exist.
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	// ErrQuestionNotFound indicates a submitted question id is unknown or not part of the active exam.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrLevelNotFound indicates no level matches the access code.
	ErrLevelNotFound = fmt.Errorf("level %w", ErrNotFound)
	// ErrExamNotFound indicates the exam content could not be loaded.
	ErrExamNotFound = fmt.Errorf("exam %w", ErrNotFound)

	// ErrAttemptsExhausted is returned once a participant used every entry for a level.
	ErrAttemptsExhausted = errors.New("maximum access attempts reached")
	// ErrNotYetOpen is returned when a level is scheduled to open in the future.
	ErrNotYetOpen = errors.New("level is not open yet")
	// ErrSandbox marks an execution backend failure.
	ErrSandbox = errors.New("sandbox error")
	// ErrUnsupportedLanguage is returned by executors for unknown language identifiers.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrPersistenceConflict signals a lost race on a guarded update; callers retry.
	ErrPersistenceConflict = errors.New("concurrent update conflict")
	// ErrTeamNameTaken is returned on registration with a duplicate team name.
	ErrTeamNameTaken = errors.New("team name already registered")
)

// NotYetOpenError carries the scheduled opening time of a gated level.
type NotYetOpenError struct {
	OpensAt time.Time
}

func (e *NotYetOpenError) Error() string {
	return fmt.Sprintf("level opens at %s", e.OpensAt.Format(time.RFC3339))
}

func (e *NotYetOpenError) Is(target error) bool {
	return target == ErrNotYetOpen
}
