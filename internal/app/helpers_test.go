package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"contest-engine/internal/app"
	"contest-engine/internal/domain"
	"contest-engine/internal/infra/memory"
)

var baseTime = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	service *app.ContestService
	store   *memory.Store
	events  *memory.EventRecorder
	clock   *testClock
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil, opts...)
}

func newFixtureWithStore(t *testing.T, wrap func(app.Store) app.Store, opts ...app.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	events := memory.NewEventRecorder()
	clock := &testClock{now: baseTime}
	exams := memory.NewExamRepository(memory.NewStaticExamLoader(testExams()), time.Minute)

	var backing app.Store = store
	if wrap != nil {
		backing = wrap(store)
	}
	all := append([]app.Option{
		app.WithClock(clock.Now),
		app.WithPublisher(events),
		app.WithPresence(memory.NewPresenceTrackerWithClock(time.Minute, clock.Now)),
	}, opts...)
	return &fixture{
		service: app.NewContestService(backing, exams, all...),
		store:   store,
		events:  events,
		clock:   clock,
	}
}

// register creates a team and unlocks level 1 of the qualifier for it.
func (f *fixture) register(t *testing.T, team string) domain.Participant {
	t.Helper()
	p, err := f.service.Register(context.Background(), team, "Engineering College", "a, b")
	if err != nil {
		t.Fatalf("register %s: %v", team, err)
	}
	if _, err := f.service.Enter(context.Background(), "ALPHA-1", p.ID); err != nil {
		t.Fatalf("enter %s: %v", team, err)
	}
	return p
}

func (f *fixture) submit(t *testing.T, participantID, questionID string, level, passed, total, timeTaken int) domain.SubmitResult {
	t.Helper()
	res, err := f.service.Submit(context.Background(), domain.SubmitInput{
		ParticipantID: participantID,
		QuestionID:    questionID,
		LevelNumber:   level,
		Code:          "print(input())",
		Language:      "python",
		Outcomes:      outcomes(passed, total),
		TimeTaken:     timeTaken,
	})
	if err != nil {
		t.Fatalf("submit %s: %v", questionID, err)
	}
	return res
}

func (f *fixture) countEvents(kind domain.EventType) int {
	n := 0
	for _, e := range f.events.Events() {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func outcomes(passed, total int) []domain.TestOutcome {
	out := make([]domain.TestOutcome, total)
	for i := range out {
		out[i] = domain.TestOutcome{TestCaseID: "case", Passed: i < passed}
	}
	return out
}

func testExams() map[string]domain.Exam {
	opensAt := baseTime.Add(time.Hour)
	return map[string]domain.Exam{
		"exam-1": {
			ID:    "exam-1",
			Title: "Qualifier",
			Levels: []domain.ExamLevel{
				{
					ID:          "lvl-1",
					LevelNumber: 1,
					AccessCode:  "ALPHA-1",
					TimeLimit:   45,
					Questions: []domain.Question{
						{
							ID:     "A",
							Title:  "Sum",
							Points: 10,
							TestCases: []domain.TestCase{
								{ID: "a1", Input: "1 2", ExpectedOutput: "3"},
								{ID: "a2", Input: "2 2", ExpectedOutput: "4", IsHidden: true},
							},
						},
						{
							ID:        "B",
							Title:     "Echo",
							Points:    10,
							TestCases: []domain.TestCase{{ID: "b1", Input: "hi", ExpectedOutput: "hi"}},
						},
					},
				},
				{
					ID:          "lvl-2",
					LevelNumber: 2,
					AccessCode:  "ALPHA-2",
					TimeLimit:   45,
					Questions: []domain.Question{
						{
							ID:        "C",
							Title:     "Bonus",
							Points:    1,
							TestCases: []domain.TestCase{{ID: "c1", Input: "", ExpectedOutput: "ok"}},
						},
					},
				},
			},
		},
		"exam-2": {
			ID:    "exam-2",
			Title: "Finals",
			Levels: []domain.ExamLevel{
				{
					ID:          "lvl-3",
					LevelNumber: 1,
					AccessCode:  "FINAL-1",
					TimeLimit:   60,
					StartTime:   &opensAt,
					Questions: []domain.Question{
						{ID: "D", Title: "Graph", TestCases: []domain.TestCase{{ID: "d1", Input: "1", ExpectedOutput: "1"}}},
					},
				},
			},
		},
	}
}
