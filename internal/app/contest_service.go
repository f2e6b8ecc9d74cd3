package app

import (
	"context"
	"errors"
	"time"

	"contest-engine/internal/domain"
	"go.uber.org/zap"
)

// ExamRepository loads exam content (from cache/backing store). Content is read-only here.
type ExamRepository interface {
	GetExam(ctx context.Context, examID string) (domain.Exam, error)
	GetExamByAccessCode(ctx context.Context, accessCode string) (domain.Exam, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
}

// Store persists participant state. Every mutation goes through InTx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetParticipant(ctx context.Context, id string) (domain.Participant, error)
	ListParticipants(ctx context.Context) ([]domain.Participant, error)
	ListSubmissions(ctx context.Context, participantID string) ([]domain.Submission, error)
	// SolvedCounts returns the number of distinct passed questions per participant.
	SolvedCounts(ctx context.Context) (map[string]int, error)
	CreateParticipant(ctx context.Context, p domain.Participant) error
	// DeleteParticipant removes the participant with its submissions, attempts and violations.
	DeleteParticipant(ctx context.Context, id string) error
}

// Tx is the transactional view of the store. LockParticipant must be called before
// any write for that participant so concurrent transactions serialize on the row.
type Tx interface {
	LockParticipant(ctx context.Context, id string) (domain.Participant, error)
	// SaveParticipant writes every mutable column except CurrentLevel.
	SaveParticipant(ctx context.Context, p domain.Participant) error
	// AdvanceLevel moves CurrentLevel from `from` to from+1, or fails with
	// domain.ErrPersistenceConflict if the stored level is no longer `from`.
	AdvanceLevel(ctx context.Context, participantID string, from int) error

	Attempts(ctx context.Context, participantID, levelID string) (int, error)
	IncrementAttempts(ctx context.Context, participantID, levelID string) (int, error)
	ResetAttempts(ctx context.Context, participantID, levelID string) error

	AppendSubmission(ctx context.Context, s domain.Submission) error
	// BestScoreSum sums, per question, the maximum submission score.
	BestScoreSum(ctx context.Context, participantID string) (int, error)
	// TotalTime sums, per level number, the maximum time taken.
	TotalTime(ctx context.Context, participantID string) (int, error)
	PassedQuestions(ctx context.Context, participantID string, questionIDs []string) (map[string]bool, error)

	AppendViolation(ctx context.Context, v domain.Violation) error
}

// PresenceTracker marks participants as online on heartbeat.
type PresenceTracker interface {
	Touch(ctx context.Context, participantID string) error
	Online(ctx context.Context, participantIDs []string) (map[string]bool, error)
	Forget(ctx context.Context, participantID string) error
}

// EventPublisher ships audit events after a state change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Rules are the contest constants.
type Rules struct {
	MaxEntryAttempts int
	ViolationPenalty int
	MaxRetries       int
}

// DefaultRules: two entries per level, two points per violation.
func DefaultRules() Rules {
	return Rules{MaxEntryAttempts: 2, ViolationPenalty: 2, MaxRetries: 3}
}

// ContestService contains the gate, grading, violation and reader use cases.
type ContestService struct {
	store     Store
	exams     ExamRepository
	resolver  *Resolver
	presence  PresenceTracker
	publisher EventPublisher
	rules     Rules
	now       func() time.Time
	log       *zap.Logger
}

// Option configures a ContestService.
type Option func(*ContestService)

func WithLogger(log *zap.Logger) Option {
	return func(s *ContestService) { s.log = log }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ContestService) { s.now = now }
}

func WithRules(rules Rules) Option {
	return func(s *ContestService) { s.rules = rules }
}

func WithResolver(resolver *Resolver) Option {
	return func(s *ContestService) { s.resolver = resolver }
}

func WithPresence(presence PresenceTracker) Option {
	return func(s *ContestService) { s.presence = presence }
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *ContestService) { s.publisher = publisher }
}

func NewContestService(store Store, exams ExamRepository, opts ...Option) *ContestService {
	s := &ContestService{
		store: store,
		exams: exams,
		rules: DefaultRules(),
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rules.MaxEntryAttempts <= 0 {
		s.rules.MaxEntryAttempts = DefaultRules().MaxEntryAttempts
	}
	if s.rules.ViolationPenalty < 0 {
		s.rules.ViolationPenalty = 0
	}
	return s
}

// update runs fn in a transaction, re-running it from scratch when a guarded
// write lost a race.
func (s *ContestService) update(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.rules.MaxRetries; attempt++ {
		err = s.store.InTx(ctx, fn)
		if !errors.Is(err, domain.ErrPersistenceConflict) {
			return err
		}
		s.log.Warn("transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
		)
	}
	return err
}

func (s *ContestService) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish event failed",
			zap.String("type", string(event.Type)),
			zap.String("participant_id", event.ParticipantID),
			zap.Error(err),
		)
	}
}

func (s *ContestService) touch(ctx context.Context, participantID string) {
	if s.presence == nil {
		return
	}
	if err := s.presence.Touch(ctx, participantID); err != nil {
		s.log.Debug("presence touch failed", zap.String("participant_id", participantID), zap.Error(err))
	}
}
