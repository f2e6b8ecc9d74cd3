package memory

import (
	"context"
	"sort"
	"sync"

	"contest-engine/internal/app"
	"contest-engine/internal/domain"
)

// Store is an in-memory implementation of app.Store. Transactions run one at a
// time against a copy of the state that replaces it only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

type attemptKey struct {
	participantID string
	levelID       string
}

type state struct {
	participants map[string]domain.Participant
	teams        map[string]string
	submissions  []domain.Submission
	attempts     map[attemptKey]domain.LevelAttempt
	violations   []domain.Violation
}

func NewStore() *Store {
	return &Store{state: &state{
		participants: make(map[string]domain.Participant),
		teams:        make(map[string]string),
		attempts:     make(map[attemptKey]domain.LevelAttempt),
	}}
}

func (s *state) clone() *state {
	c := &state{
		participants: make(map[string]domain.Participant, len(s.participants)),
		teams:        make(map[string]string, len(s.teams)),
		submissions:  append([]domain.Submission(nil), s.submissions...),
		attempts:     make(map[attemptKey]domain.LevelAttempt, len(s.attempts)),
		violations:   append([]domain.Violation(nil), s.violations...),
	}
	for k, v := range s.participants {
		c.participants[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = v
	}
	return c
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(ctx, &tx{state: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Store) ListParticipants(_ context.Context) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, 0, len(s.state.participants))
	for _, p := range s.state.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListSubmissions(_ context.Context, participantID string) ([]domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Submission
	for _, sub := range s.state.submissions {
		if sub.ParticipantID == participantID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) SolvedCounts(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type solvedKey struct{ participantID, questionID string }
	seen := make(map[solvedKey]struct{})
	counts := make(map[string]int)
	for _, sub := range s.state.submissions {
		if sub.Status != domain.StatusPassed {
			continue
		}
		key := solvedKey{participantID: sub.ParticipantID, questionID: sub.QuestionID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		counts[sub.ParticipantID]++
	}
	return counts, nil
}

func (s *Store) CreateParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.teams[p.TeamName]; ok {
		return domain.ErrTeamNameTaken
	}
	s.state.participants[p.ID] = p
	s.state.teams[p.TeamName] = p.ID
	return nil
}

func (s *Store) DeleteParticipant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.state.participants, id)
	delete(s.state.teams, p.TeamName)

	subs := s.state.submissions[:0:0]
	for _, sub := range s.state.submissions {
		if sub.ParticipantID != id {
			subs = append(subs, sub)
		}
	}
	s.state.submissions = subs

	for key := range s.state.attempts {
		if key.participantID == id {
			delete(s.state.attempts, key)
		}
	}

	violations := s.state.violations[:0:0]
	for _, v := range s.state.violations {
		if v.ParticipantID != id {
			violations = append(violations, v)
		}
	}
	s.state.violations = violations
	return nil
}

// Violations returns the audit trail of a participant.
func (s *Store) Violations(participantID string) []domain.Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Violation
	for _, v := range s.state.violations {
		if v.ParticipantID == participantID {
			out = append(out, v)
		}
	}
	return out
}

// AttemptCount returns the access-code entry counter of a participant for a level.
func (s *Store) AttemptCount(participantID, levelID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.attempts[attemptKey{participantID: participantID, levelID: levelID}].Attempts
}

type tx struct {
	state *state
}

func (t *tx) LockParticipant(_ context.Context, id string) (domain.Participant, error) {
	p, ok := t.state.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (t *tx) SaveParticipant(_ context.Context, p domain.Participant) error {
	stored, ok := t.state.participants[p.ID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.CurrentLevel = stored.CurrentLevel
	t.state.participants[p.ID] = p
	return nil
}

func (t *tx) AdvanceLevel(_ context.Context, participantID string, from int) error {
	p, ok := t.state.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.CurrentLevel != from {
		return domain.ErrPersistenceConflict
	}
	p.CurrentLevel = from + 1
	t.state.participants[participantID] = p
	return nil
}

func (t *tx) Attempts(_ context.Context, participantID, levelID string) (int, error) {
	return t.state.attempts[attemptKey{participantID: participantID, levelID: levelID}].Attempts, nil
}

func (t *tx) IncrementAttempts(_ context.Context, participantID, levelID string) (int, error) {
	key := attemptKey{participantID: participantID, levelID: levelID}
	a := t.state.attempts[key]
	a.ParticipantID = participantID
	a.LevelID = levelID
	a.Attempts++
	t.state.attempts[key] = a
	return a.Attempts, nil
}

func (t *tx) ResetAttempts(_ context.Context, participantID, levelID string) error {
	delete(t.state.attempts, attemptKey{participantID: participantID, levelID: levelID})
	return nil
}

func (t *tx) AppendSubmission(_ context.Context, sub domain.Submission) error {
	t.state.submissions = append(t.state.submissions, sub)
	return nil
}

func (t *tx) BestScoreSum(_ context.Context, participantID string) (int, error) {
	best := make(map[string]int)
	for _, sub := range t.state.submissions {
		if sub.ParticipantID != participantID {
			continue
		}
		if cur, ok := best[sub.QuestionID]; !ok || sub.Score > cur {
			best[sub.QuestionID] = sub.Score
		}
	}
	sum := 0
	for _, v := range best {
		sum += v
	}
	return sum, nil
}

func (t *tx) TotalTime(_ context.Context, participantID string) (int, error) {
	longest := make(map[int]int)
	for _, sub := range t.state.submissions {
		if sub.ParticipantID != participantID {
			continue
		}
		if cur, ok := longest[sub.LevelNumber]; !ok || sub.TimeTaken > cur {
			longest[sub.LevelNumber] = sub.TimeTaken
		}
	}
	sum := 0
	for _, v := range longest {
		sum += v
	}
	return sum, nil
}

func (t *tx) PassedQuestions(_ context.Context, participantID string, questionIDs []string) (map[string]bool, error) {
	wanted := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		wanted[id] = struct{}{}
	}
	passed := make(map[string]bool)
	for _, sub := range t.state.submissions {
		if sub.ParticipantID != participantID || sub.Status != domain.StatusPassed {
			continue
		}
		if _, ok := wanted[sub.QuestionID]; ok {
			passed[sub.QuestionID] = true
		}
	}
	return passed, nil
}

func (t *tx) AppendViolation(_ context.Context, v domain.Violation) error {
	t.state.violations = append(t.state.violations, v)
	return nil
}
