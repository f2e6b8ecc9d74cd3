package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contest-engine/internal/app"
	"contest-engine/internal/domain"
	"contest-engine/internal/infra/memory"
)

var now = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

// echoExecutor prints its stdin back, which passes any case whose expected
// output equals its input.
type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, req domain.ExecRequest) (domain.ExecResult, error) {
	return domain.ExecResult{Stdout: req.Stdin, Status: domain.ExecAccepted}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	opensAt := now.Add(time.Hour)
	exams := memory.NewStaticExamLoader(map[string]domain.Exam{
		"exam-1": {
			ID:    "exam-1",
			Title: "Qualifier",
			Levels: []domain.ExamLevel{
				{
					ID: "lvl-1", LevelNumber: 1, AccessCode: "OPEN", TimeLimit: 30,
					Questions: []domain.Question{{
						ID: "echo", Title: "Echo", Points: 10,
						TestCases: []domain.TestCase{{ID: "e1", Input: "hi", ExpectedOutput: "hi"}},
					}},
				},
				{
					ID: "lvl-2", LevelNumber: 2, AccessCode: "LATER", TimeLimit: 30, StartTime: &opensAt,
					Questions: []domain.Question{{ID: "later", Title: "Later"}},
				},
			},
		},
	})
	resolver := app.NewResolver(echoExecutor{}, 1, nil)
	service := app.NewContestService(
		memory.NewStore(),
		memory.NewExamRepository(exams, time.Minute),
		app.WithClock(func() time.Time { return now }),
		app.WithResolver(resolver),
		app.WithPresence(memory.NewPresenceTrackerWithClock(time.Minute, func() time.Time { return now })),
	)
	srv := httptest.NewServer(NewHandler(service, resolver, nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestContestFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var p domain.Participant
	if code := do(t, srv, http.MethodPost, "/api/participants", map[string]any{"teamName": "alpha"}, &p); code != http.StatusCreated {
		t.Fatalf("register status %d", code)
	}

	var view domain.LevelView
	code := do(t, srv, http.MethodPost, "/api/access/verify", map[string]any{"accessCode": "OPEN", "participantId": p.ID}, &view)
	if code != http.StatusOK || len(view.Questions) != 1 || view.AttemptsUsed != 1 {
		t.Fatalf("verify: status %d view %+v", code, view)
	}

	var graded app.GradeResult
	code = do(t, srv, http.MethodPost, "/api/submissions", map[string]any{
		"participantId": p.ID,
		"questionId":    "echo",
		"levelNumber":   1,
		"code":          "print(input())",
		"language":      "python",
		"timeTaken":     42,
	}, &graded)
	if code != http.StatusOK {
		t.Fatalf("submit status %d", code)
	}
	if graded.Score != 10 || graded.CurrentLevel != 2 || !graded.Advanced || len(graded.Outcomes) != 1 {
		t.Fatalf("unexpected grade %+v", graded)
	}

	var lb domain.Leaderboard
	if code := do(t, srv, http.MethodGet, "/api/leaderboard", nil, &lb); code != http.StatusOK {
		t.Fatalf("leaderboard status %d", code)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Score != 10 || !lb.Entries[0].Online {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	var v domain.ViolationResult
	if code := do(t, srv, http.MethodPost, "/api/violations", map[string]any{"participantId": p.ID, "reason": "tab switch"}, &v); code != http.StatusOK {
		t.Fatalf("violation status %d", code)
	}
	if v.Score != 8 || v.ViolationCount != 1 || v.TeamName != "alpha" {
		t.Fatalf("unexpected violation %+v", v)
	}

	var profile domain.Profile
	if code := do(t, srv, http.MethodGet, "/api/participants/"+p.ID, nil, &profile); code != http.StatusOK {
		t.Fatalf("profile status %d", code)
	}
	if profile.Participant.Score != 8 || len(profile.Results) != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	var p domain.Participant
	do(t, srv, http.MethodPost, "/api/participants", map[string]any{"teamName": "alpha"}, &p)

	if code := do(t, srv, http.MethodPost, "/api/participants", map[string]any{"teamName": "alpha"}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate team: expected 409, got %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/api/participants", map[string]any{"teamName": "   "}, nil); code != http.StatusBadRequest {
		t.Fatalf("blank team: expected 400, got %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/api/access/verify", map[string]any{"accessCode": "NOPE", "participantId": p.ID}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown code: expected 404, got %d", code)
	}

	var closed errorResponse
	code := do(t, srv, http.MethodPost, "/api/access/verify", map[string]any{"accessCode": "LATER", "participantId": p.ID}, &closed)
	if code != http.StatusLocked || closed.OpensAt == nil || !closed.OpensAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("not yet open: status %d body %+v", code, closed)
	}

	for i := 0; i < 2; i++ {
		do(t, srv, http.MethodPost, "/api/access/verify", map[string]any{"accessCode": "OPEN", "participantId": p.ID}, nil)
	}
	if code := do(t, srv, http.MethodPost, "/api/access/verify", map[string]any{"accessCode": "OPEN", "participantId": p.ID}, nil); code != http.StatusForbidden {
		t.Fatalf("exhausted: expected 403, got %d", code)
	}

	if code := do(t, srv, http.MethodPost, "/api/submissions", map[string]any{"participantId": p.ID, "questionId": "echo", "levelNumber": 1, "code": "x", "language": "cobol"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad language: expected 400, got %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/api/violations", map[string]any{"participantId": "ghost", "reason": "x"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown participant: expected 404, got %d", code)
	}
	if code := do(t, srv, http.MethodPatch, "/api/participants/"+p.ID+"/lock", map[string]any{}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing lock flag: expected 400, got %d", code)
	}
}

func TestOperatorEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var p domain.Participant
	do(t, srv, http.MethodPost, "/api/participants", map[string]any{"teamName": "alpha", "collegeName": "MIT"}, &p)

	var locked domain.Participant
	if code := do(t, srv, http.MethodPatch, "/api/participants/"+p.ID+"/lock", map[string]any{"locked": true}, &locked); code != http.StatusOK || !locked.IsLocked {
		t.Fatalf("lock: status %d participant %+v", code, locked)
	}

	var granted domain.Participant
	if code := do(t, srv, http.MethodPost, "/api/participants/"+p.ID+"/extra-attempt", nil, &granted); code != http.StatusOK || granted.ExtraAttempts != 1 {
		t.Fatalf("extra attempt: status %d participant %+v", code, granted)
	}

	var hb domain.HeartbeatResult
	if code := do(t, srv, http.MethodPost, "/api/heartbeat", map[string]any{"participantId": p.ID, "timeRemaining": 300}, &hb); code != http.StatusOK {
		t.Fatalf("heartbeat status %d", code)
	}
	if !hb.IsLocked || hb.TimeRemaining == nil || *hb.TimeRemaining != 300 {
		t.Fatalf("unexpected heartbeat %+v", hb)
	}

	var stats domain.Stats
	if code := do(t, srv, http.MethodGet, "/api/stats", nil, &stats); code != http.StatusOK || stats.RegisteredTeams != 1 || stats.TotalQuestions != 2 {
		t.Fatalf("stats: status %d %+v", code, stats)
	}

	var res domain.ExecResult
	if code := do(t, srv, http.MethodPost, "/api/execute", map[string]any{"code": "x", "language": "cpp", "stdin": "ping"}, &res); code != http.StatusOK || res.Stdout != "ping" {
		t.Fatalf("execute: status %d %+v", code, res)
	}

	if code := do(t, srv, http.MethodDelete, "/api/participants/"+p.ID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", code)
	}
	if code := do(t, srv, http.MethodGet, "/api/participants/"+p.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("profile after delete: expected 404, got %d", code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
