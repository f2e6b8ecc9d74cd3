package app

import (
	"context"
	"errors"

	"contest-engine/internal/domain"
	"go.uber.org/zap"
)

// Enter verifies an access code and unlocks the level's questions. With an empty
// participantID it only previews the level; no attempt is counted.
func (s *ContestService) Enter(ctx context.Context, accessCode, participantID string) (domain.LevelView, error) {
	exam, err := s.exams.GetExamByAccessCode(ctx, accessCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.LevelView{}, domain.ErrLevelNotFound
		}
		return domain.LevelView{}, err
	}
	level, ok := exam.LevelByCode(accessCode)
	if !ok {
		return domain.LevelView{}, domain.ErrLevelNotFound
	}

	if participantID == "" {
		if err := s.checkOpen(level); err != nil {
			return domain.LevelView{}, err
		}
		return levelView(exam, level, nil), nil
	}

	var view domain.LevelView
	err = s.update(ctx, "enter", func(ctx context.Context, tx Tx) error {
		p, err := tx.LockParticipant(ctx, participantID)
		if err != nil {
			return err
		}

		// The ceiling is checked before anything about the level is revealed.
		ceiling := s.rules.MaxEntryAttempts + p.ExtraAttempts
		used, err := tx.Attempts(ctx, p.ID, level.ID)
		if err != nil {
			return err
		}
		if used >= ceiling {
			return domain.ErrAttemptsExhausted
		}
		// A scheduling block is not an entry attempt.
		if err := s.checkOpen(level); err != nil {
			return err
		}

		used, err = tx.IncrementAttempts(ctx, p.ID, level.ID)
		if err != nil {
			return err
		}
		solved, err := tx.PassedQuestions(ctx, p.ID, level.QuestionIDs())
		if err != nil {
			return err
		}

		p.ExamID = exam.ID
		p.IsStarted = true
		p.LastActive = s.now()
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}

		view = levelView(exam, level, solved)
		view.TimeRemaining = p.TimeRemaining
		view.AttemptsUsed = used
		view.AttemptsRemaining = max(ceiling-used, 0)
		view.IsLocked = p.IsLocked
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAttemptsExhausted) {
			s.log.Info("access denied, attempts exhausted",
				zap.String("participant_id", participantID),
				zap.Int("level", level.LevelNumber),
			)
		}
		return domain.LevelView{}, err
	}

	s.touch(ctx, participantID)
	return view, nil
}

func (s *ContestService) checkOpen(level domain.ExamLevel) error {
	if level.StartTime != nil && level.StartTime.After(s.now()) {
		return &domain.NotYetOpenError{OpensAt: *level.StartTime}
	}
	return nil
}

func levelView(exam domain.Exam, level domain.ExamLevel, solved map[string]bool) domain.LevelView {
	questions := make([]domain.QuestionView, 0, len(level.Questions))
	for _, q := range level.Questions {
		q.Points = q.EffectivePoints()
		q.TestCases = q.PublicTestCases()
		questions = append(questions, domain.QuestionView{Question: q, Solved: solved[q.ID]})
	}
	return domain.LevelView{
		LevelID:     level.ID,
		ExamID:      exam.ID,
		ExamTitle:   exam.Title,
		LevelNumber: level.LevelNumber,
		TimeLimit:   level.TimeLimit,
		StartTime:   level.StartTime,
		Questions:   questions,
	}
}
