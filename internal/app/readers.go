package app

import (
	"context"
	"sort"

	"contest-engine/internal/domain"
	"go.uber.org/zap"
)

// Leaderboard ranks participants by score, then by lower total time, then by name.
func (s *ContestService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	solved, err := s.store.SolvedCounts(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	online := s.online(ctx, participants)

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID:  p.ID,
			TeamName:       p.TeamName,
			Score:          p.Score,
			TotalTime:      p.TotalTime,
			CurrentLevel:   p.CurrentLevel,
			Solved:         solved[p.ID],
			ViolationCount: p.ViolationCount,
			Online:         online[p.ID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TotalTime != entries[j].TotalTime {
			return entries[i].TotalTime < entries[j].TotalTime
		}
		return entries[i].TeamName < entries[j].TeamName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}

// Profile returns a participant's standing with the best result per question.
func (s *ContestService) Profile(ctx context.Context, participantID string) (domain.Profile, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return domain.Profile{}, err
	}
	subs, err := s.store.ListSubmissions(ctx, participantID)
	if err != nil {
		return domain.Profile{}, err
	}

	byQuestion := make(map[string]*domain.QuestionResult)
	for _, sub := range subs {
		r, ok := byQuestion[sub.QuestionID]
		if !ok {
			r = &domain.QuestionResult{
				QuestionID:  sub.QuestionID,
				LevelNumber: sub.LevelNumber,
				BestScore:   sub.Score,
				Status:      domain.StatusFailed,
			}
			byQuestion[sub.QuestionID] = r
		}
		r.Attempts++
		if sub.Score > r.BestScore {
			r.BestScore = sub.Score
			r.LevelNumber = sub.LevelNumber
		}
		if sub.Status == domain.StatusPassed {
			r.Status = domain.StatusPassed
		}
	}
	results := make([]domain.QuestionResult, 0, len(byQuestion))
	for _, r := range byQuestion {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].LevelNumber != results[j].LevelNumber {
			return results[i].LevelNumber < results[j].LevelNumber
		}
		return results[i].QuestionID < results[j].QuestionID
	})

	online := s.online(ctx, []domain.Participant{p})
	return domain.Profile{Participant: p, Results: results, Online: online[p.ID]}, nil
}

// Stats returns organizer totals.
func (s *ContestService) Stats(ctx context.Context) (domain.Stats, error) {
	exams, err := s.exams.ListExams(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	questions := make(map[string]struct{})
	for _, exam := range exams {
		for _, level := range exam.Levels {
			for _, q := range level.Questions {
				questions[q.ID] = struct{}{}
			}
		}
	}
	stats := domain.Stats{
		TotalQuestions:  len(questions),
		TotalExams:      len(exams),
		RegisteredTeams: len(participants),
	}
	for _, p := range participants {
		stats.TotalViolations += p.ViolationCount
	}
	return stats, nil
}

func (s *ContestService) online(ctx context.Context, participants []domain.Participant) map[string]bool {
	if s.presence == nil || len(participants) == 0 {
		return map[string]bool{}
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	online, err := s.presence.Online(ctx, ids)
	if err != nil {
		s.log.Debug("presence lookup failed", zap.Error(err))
		return map[string]bool{}
	}
	return online
}
