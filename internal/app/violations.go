package app

import (
	"context"

	"contest-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordViolation applies the fixed penalty to the stored score and counts the
// violation. The count keeps discounting every later recompute.
func (s *ContestService) RecordViolation(ctx context.Context, participantID, reason string) (domain.ViolationResult, error) {
	var (
		res    domain.ViolationResult
		before int
	)
	err := s.update(ctx, "violation", func(ctx context.Context, tx Tx) error {
		p, err := tx.LockParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		now := s.now()
		before = p.Score
		p.Score = max(p.Score-s.rules.ViolationPenalty, 0)
		p.ViolationCount++
		p.LastActive = now
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		if err := tx.AppendViolation(ctx, domain.Violation{
			ID:            uuid.NewString(),
			ParticipantID: p.ID,
			Reason:        reason,
			ScoreBefore:   before,
			ScoreAfter:    p.Score,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		res = domain.ViolationResult{
			Score:          p.Score,
			ViolationCount: p.ViolationCount,
			TeamName:       p.TeamName,
		}
		return nil
	})
	if err != nil {
		return domain.ViolationResult{}, err
	}

	s.log.Info("violation recorded",
		zap.String("participant_id", participantID),
		zap.String("team", res.TeamName),
		zap.String("reason", reason),
		zap.Int("score_before", before),
		zap.Int("score_after", res.Score),
		zap.Int("violations", res.ViolationCount),
	)
	s.publish(ctx, domain.Event{
		Type:          domain.EventViolationRecorded,
		ParticipantID: participantID,
		TeamName:      res.TeamName,
		Data: map[string]any{
			"reason":         reason,
			"scoreBefore":    before,
			"scoreAfter":     res.Score,
			"violationCount": res.ViolationCount,
		},
		At: s.now(),
	})
	return res, nil
}

// Heartbeat refreshes liveness and checkpoints the client-reported remaining time.
func (s *ContestService) Heartbeat(ctx context.Context, participantID string, timeRemaining *int) (domain.HeartbeatResult, error) {
	var res domain.HeartbeatResult
	err := s.update(ctx, "heartbeat", func(ctx context.Context, tx Tx) error {
		p, err := tx.LockParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		p.LastActive = s.now()
		p.IsStarted = true
		if timeRemaining != nil {
			remaining := *timeRemaining
			p.TimeRemaining = &remaining
		}
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		res = domain.HeartbeatResult{
			Score:         p.Score,
			CurrentLevel:  p.CurrentLevel,
			IsLocked:      p.IsLocked,
			TimeRemaining: p.TimeRemaining,
		}
		return nil
	})
	if err != nil {
		return domain.HeartbeatResult{}, err
	}
	s.touch(ctx, participantID)
	return res, nil
}
