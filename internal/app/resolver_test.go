package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"contest-engine/internal/app"
	"contest-engine/internal/domain"
)

// scriptedExecutor answers by stdin; a missing entry fails the sandbox call.
type scriptedExecutor struct {
	mu      sync.Mutex
	answers map[string]domain.ExecResult
	calls   int
}

func (e *scriptedExecutor) Execute(_ context.Context, req domain.ExecRequest) (domain.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	res, ok := e.answers[req.Stdin]
	if !ok {
		return domain.ExecResult{}, errors.New("sandbox unavailable")
	}
	return res, nil
}

func TestResolveMarksSandboxErrorAsFailedCase(t *testing.T) {
	exec := &scriptedExecutor{answers: map[string]domain.ExecResult{
		"1 2": {Stdout: "3\n", Status: domain.ExecAccepted},
		"5 5": {Stdout: "10", Status: domain.ExecRuntimeError, Stderr: "boom"},
		"7 1": {Stdout: " 8 ", Status: domain.ExecAccepted},
	}}
	resolver := app.NewResolver(exec, 1, nil)
	cases := []domain.TestCase{
		{ID: "t1", Input: "1 2", ExpectedOutput: "3"},
		{ID: "t2", Input: "down", ExpectedOutput: "x"},
		{ID: "t3", Input: "5 5", ExpectedOutput: "10"},
		{ID: "t4", Input: "7 1", ExpectedOutput: "8"},
	}

	var progress []int
	got := resolver.Resolve(context.Background(), "code", "python", cases, func(i int, _ domain.TestOutcome) {
		progress = append(progress, i)
	})

	if len(got) != 4 || exec.calls != 4 {
		t.Fatalf("expected 4 outcomes and calls, got %d/%d", len(got), exec.calls)
	}
	if !got[0].Passed || got[0].TestCaseID != "t1" {
		t.Fatalf("t1: %+v", got[0])
	}
	if got[1].Passed || got[1].Error == "" {
		t.Fatalf("t2 should fail with error: %+v", got[1])
	}
	if got[2].Passed || got[2].Stderr != "boom" {
		t.Fatalf("t3 should fail on runtime error: %+v", got[2])
	}
	if !got[3].Passed {
		t.Fatalf("t4 should pass ignoring whitespace: %+v", got[3])
	}
	if len(progress) != 4 || progress[0] != 0 || progress[3] != 3 {
		t.Fatalf("sequential progress expected, got %v", progress)
	}
}

func TestResolveConcurrentKeepsCaseOrder(t *testing.T) {
	answers := map[string]domain.ExecResult{}
	var cases []domain.TestCase
	for _, in := range []string{"a", "b", "c", "d", "e", "f"} {
		answers[in] = domain.ExecResult{Stdout: in, Status: domain.ExecAccepted}
		cases = append(cases, domain.TestCase{ID: "case-" + in, Input: in, ExpectedOutput: in})
	}
	resolver := app.NewResolver(&scriptedExecutor{answers: answers}, 4, nil)

	var mu sync.Mutex
	seen := 0
	got := resolver.Resolve(context.Background(), "code", "go", cases, func(int, domain.TestOutcome) {
		mu.Lock()
		seen++
		mu.Unlock()
	})
	if seen != len(cases) {
		t.Fatalf("expected %d progress callbacks, got %d", len(cases), seen)
	}
	for i, o := range got {
		if o.TestCaseID != cases[i].ID || !o.Passed {
			t.Fatalf("outcome %d out of order or failed: %+v", i, o)
		}
	}
}

func TestRunWrapsSandboxError(t *testing.T) {
	resolver := app.NewResolver(&scriptedExecutor{answers: map[string]domain.ExecResult{}}, 1, nil)
	_, err := resolver.Run(context.Background(), domain.ExecRequest{Source: "x", Language: "python", Stdin: "missing"})
	if !errors.Is(err, domain.ErrSandbox) {
		t.Fatalf("expected sandbox error, got %v", err)
	}
}

func TestGradeRunsAllCasesThenSubmits(t *testing.T) {
	exec := &scriptedExecutor{answers: map[string]domain.ExecResult{
		"1 2": {Stdout: "3", Status: domain.ExecAccepted},
		"2 2": {Stdout: "5", Status: domain.ExecAccepted},
		"hi":  {Stdout: "hi", Status: domain.ExecAccepted},
	}}
	f := newFixture(t, app.WithResolver(app.NewResolver(exec, 2, nil)))
	p := f.register(t, "alpha")

	res, err := f.service.Grade(context.Background(), app.GradeInput{
		ParticipantID: p.ID,
		QuestionID:    "A",
		LevelNumber:   1,
		Code:          "print(sum(map(int, input().split())))",
		Language:      "python",
		TimeTaken:     25,
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if len(res.Outcomes) != 2 || !res.Outcomes[0].Passed || res.Outcomes[1].Passed {
		t.Fatalf("unexpected outcomes %+v", res.Outcomes)
	}
	if res.AttemptScore != 5 || res.Score != 5 || res.Passed {
		t.Fatalf("unexpected result %+v", res.SubmitResult)
	}

	res, err = f.service.Grade(context.Background(), app.GradeInput{
		ParticipantID: p.ID,
		QuestionID:    "B",
		LevelNumber:   1,
		Code:          "print(input())",
		Language:      "python",
	})
	if err != nil {
		t.Fatalf("grade B: %v", err)
	}
	if !res.Passed || res.Score != 15 {
		t.Fatalf("unexpected result %+v", res.SubmitResult)
	}
}

func TestGradeWithoutResolver(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "alpha")
	if _, err := f.service.Grade(context.Background(), app.GradeInput{ParticipantID: p.ID, QuestionID: "A"}); err == nil {
		t.Fatalf("expected error without resolver")
	}
}
