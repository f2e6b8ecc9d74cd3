package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest-engine/internal/domain"
)

func TestLeaderboardOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alpha := f.register(t, "alpha")
	beta := f.register(t, "beta")
	gamma := f.register(t, "gamma")
	delta := f.register(t, "delta")

	f.submit(t, alpha.ID, "A", 1, 2, 2, 100)
	f.submit(t, beta.ID, "A", 1, 2, 2, 50)
	f.submit(t, gamma.ID, "A", 1, 1, 2, 10)
	f.submit(t, delta.ID, "A", 1, 2, 2, 50)

	lb, err := f.service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []string{"beta", "delta", "alpha", "gamma"}
	if len(lb.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(lb.Entries))
	}
	for i, name := range want {
		e := lb.Entries[i]
		if e.TeamName != name || e.Rank != i+1 {
			t.Fatalf("rank %d: expected %s, got %+v", i+1, name, e)
		}
	}
	if lb.Entries[0].Solved != 1 || lb.Entries[3].Solved != 0 {
		t.Fatalf("unexpected solved counts %+v", lb.Entries)
	}
	if !lb.Entries[0].Online {
		t.Fatalf("expected active team online")
	}

	f.clock.Advance(5 * time.Minute)
	lb, _ = f.service.Leaderboard(ctx)
	if lb.Entries[0].Online {
		t.Fatalf("expected team offline after presence ttl")
	}
	if !lb.UpdatedAt.Equal(baseTime.Add(5 * time.Minute)) {
		t.Fatalf("unexpected updatedAt %s", lb.UpdatedAt)
	}
}

func TestProfileSummarizesBestResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.register(t, "alpha")

	f.submit(t, p.ID, "B", 1, 0, 1, 10)
	f.submit(t, p.ID, "A", 1, 1, 2, 10)
	f.submit(t, p.ID, "A", 1, 2, 2, 10)
	f.submit(t, p.ID, "A", 1, 0, 2, 10)

	profile, err := f.service.Profile(ctx, p.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(profile.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(profile.Results))
	}
	a, b := profile.Results[0], profile.Results[1]
	if a.QuestionID != "A" || a.BestScore != 10 || a.Status != domain.StatusPassed || a.Attempts != 3 {
		t.Fatalf("unexpected A result %+v", a)
	}
	if b.QuestionID != "B" || b.BestScore != 0 || b.Status != domain.StatusFailed || b.Attempts != 1 {
		t.Fatalf("unexpected B result %+v", b)
	}
	if profile.Participant.Score != 10 {
		t.Fatalf("unexpected score %d", profile.Participant.Score)
	}

	if _, err := f.service.Profile(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.register(t, "alpha")
	f.register(t, "beta")
	_, _ = f.service.RecordViolation(ctx, p.ID, "tab switch")
	_, _ = f.service.RecordViolation(ctx, p.ID, "tab switch")

	stats, err := f.service.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.Stats{TotalQuestions: 4, TotalExams: 2, RegisteredTeams: 2, TotalViolations: 2}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}
