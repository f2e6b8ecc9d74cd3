package app

import (
	"context"
	"fmt"
	"strings"

	"contest-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Register creates a team at level 1 with a zero score.
func (s *ContestService) Register(ctx context.Context, teamName, collegeName, members string) (domain.Participant, error) {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return domain.Participant{}, fmt.Errorf("team name is required")
	}
	now := s.now()
	p := domain.Participant{
		ID:           uuid.NewString(),
		TeamName:     teamName,
		CollegeName:  strings.TrimSpace(collegeName),
		Members:      strings.TrimSpace(members),
		CurrentLevel: 1,
		LastActive:   now,
		CreatedAt:    now,
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return domain.Participant{}, err
	}
	s.log.Info("participant registered", zap.String("participant_id", p.ID), zap.String("team", p.TeamName))
	return p, nil
}

// SetLocked toggles the operator lock.
func (s *ContestService) SetLocked(ctx context.Context, participantID string, locked bool) (domain.Participant, error) {
	return s.mutate(ctx, "lock", participantID, func(p *domain.Participant) {
		p.IsLocked = locked
	})
}

// GrantExtraAttempt raises the participant's access-gate ceiling by one.
func (s *ContestService) GrantExtraAttempt(ctx context.Context, participantID string) (domain.Participant, error) {
	return s.mutate(ctx, "extra-attempt", participantID, func(p *domain.Participant) {
		p.ExtraAttempts++
	})
}

// DeleteParticipant removes a participant and everything recorded for it.
func (s *ContestService) DeleteParticipant(ctx context.Context, participantID string) error {
	if err := s.store.DeleteParticipant(ctx, participantID); err != nil {
		return err
	}
	if s.presence != nil {
		_ = s.presence.Forget(ctx, participantID)
	}
	s.log.Info("participant deleted", zap.String("participant_id", participantID))
	return nil
}

func (s *ContestService) mutate(ctx context.Context, op, participantID string, fn func(p *domain.Participant)) (domain.Participant, error) {
	var out domain.Participant
	err := s.update(ctx, op, func(ctx context.Context, tx Tx) error {
		p, err := tx.LockParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		fn(&p)
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	s.log.Info("participant updated by operator",
		zap.String("op", op),
		zap.String("participant_id", participantID),
		zap.Bool("locked", out.IsLocked),
		zap.Int("extra_attempts", out.ExtraAttempts),
	)
	return out, nil
}
