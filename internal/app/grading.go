package app

import (
	"context"
	"errors"
	"fmt"

	"contest-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GradeInput is a submission whose test cases have not been run yet.
type GradeInput struct {
	ParticipantID string
	QuestionID    string
	LevelNumber   int
	Code          string
	Language      string
	TimeTaken     int
	TimeRemaining *int
}

// GradeResult is the standing after grading plus the per-case outcomes.
type GradeResult struct {
	domain.SubmitResult
	Outcomes []domain.TestOutcome `json:"outcomes"`
}

// Grade runs the code against every test case of the question and submits the
// outcomes. Sandbox calls finish before any transaction is opened.
func (s *ContestService) Grade(ctx context.Context, in GradeInput) (GradeResult, error) {
	if s.resolver == nil {
		return GradeResult{}, fmt.Errorf("grade: no resolver configured")
	}
	p, err := s.store.GetParticipant(ctx, in.ParticipantID)
	if err != nil {
		return GradeResult{}, err
	}
	_, question, err := s.activeQuestion(ctx, p, in.QuestionID)
	if err != nil {
		return GradeResult{}, err
	}

	outcomes := s.resolver.Resolve(ctx, in.Code, in.Language, question.TestCases, nil)
	res, err := s.Submit(ctx, domain.SubmitInput{
		ParticipantID: in.ParticipantID,
		QuestionID:    in.QuestionID,
		LevelNumber:   in.LevelNumber,
		Code:          in.Code,
		Language:      in.Language,
		Outcomes:      outcomes,
		TimeTaken:     in.TimeTaken,
		TimeRemaining: in.TimeRemaining,
	})
	if err != nil {
		return GradeResult{}, err
	}
	return GradeResult{SubmitResult: res, Outcomes: outcomes}, nil
}

// Submit records a graded attempt, re-derives score and total time from the full
// submission log and advances the level once every question of it has passed.
func (s *ContestService) Submit(ctx context.Context, in domain.SubmitInput) (domain.SubmitResult, error) {
	p, err := s.store.GetParticipant(ctx, in.ParticipantID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	exam, question, err := s.activeQuestion(ctx, p, in.QuestionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	passed, total := Tally(in.Outcomes)
	attemptScore := AttemptScore(question.EffectivePoints(), passed, total)
	fullyPassed := FullyPassed(passed, total)
	status := domain.StatusFailed
	if fullyPassed {
		status = domain.StatusPassed
	}
	level, hasLevel := exam.LevelByNumber(in.LevelNumber)
	next, hasNext := exam.LevelByNumber(in.LevelNumber + 1)

	var (
		res      domain.SubmitResult
		teamName string
	)
	err = s.update(ctx, "submit", func(ctx context.Context, tx Tx) error {
		res = domain.SubmitResult{}
		cur, err := tx.LockParticipant(ctx, in.ParticipantID)
		if err != nil {
			return err
		}
		teamName = cur.TeamName
		now := s.now()

		sub := domain.Submission{
			ID:            uuid.NewString(),
			ParticipantID: cur.ID,
			QuestionID:    in.QuestionID,
			LevelNumber:   in.LevelNumber,
			Code:          in.Code,
			Language:      in.Language,
			Score:         attemptScore,
			TimeTaken:     in.TimeTaken,
			Status:        status,
			CreatedAt:     now,
		}
		if err := tx.AppendSubmission(ctx, sub); err != nil {
			return err
		}

		bestSum, err := tx.BestScoreSum(ctx, cur.ID)
		if err != nil {
			return err
		}
		totalTime, err := tx.TotalTime(ctx, cur.ID)
		if err != nil {
			return err
		}
		cur.Score = Standing(bestSum, cur.ViolationCount, s.rules.ViolationPenalty)
		cur.TotalTime = totalTime
		cur.LastActive = now
		cur.IsStarted = true
		if in.TimeRemaining != nil {
			remaining := *in.TimeRemaining
			cur.TimeRemaining = &remaining
		}
		if err := tx.SaveParticipant(ctx, cur); err != nil {
			return err
		}

		advanced := false
		if fullyPassed && hasLevel && cur.CurrentLevel == in.LevelNumber {
			advanced, err = s.advanceIfComplete(ctx, tx, cur, level)
			if err != nil {
				return err
			}
			if advanced {
				cur.CurrentLevel++
				if hasNext {
					if err := tx.ResetAttempts(ctx, cur.ID, next.ID); err != nil {
						return err
					}
				}
			}
		}

		res = domain.SubmitResult{
			SubmissionID: sub.ID,
			AttemptScore: attemptScore,
			Passed:       fullyPassed,
			Score:        cur.Score,
			TotalTime:    cur.TotalTime,
			CurrentLevel: cur.CurrentLevel,
			Advanced:     advanced,
		}
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	s.log.Info("submission graded",
		zap.String("participant_id", in.ParticipantID),
		zap.String("question_id", in.QuestionID),
		zap.Int("level", in.LevelNumber),
		zap.Int("passed", passed),
		zap.Int("total", total),
		zap.Int("attempt_score", attemptScore),
		zap.Int("score", res.Score),
	)
	s.publish(ctx, domain.Event{
		Type:          domain.EventSubmissionGraded,
		ParticipantID: in.ParticipantID,
		TeamName:      teamName,
		Data: map[string]any{
			"submissionId": res.SubmissionID,
			"questionId":   in.QuestionID,
			"levelNumber":  in.LevelNumber,
			"attemptScore": attemptScore,
			"status":       string(status),
			"score":        res.Score,
		},
		At: s.now(),
	})
	if res.Advanced {
		s.log.Info("level advanced",
			zap.String("participant_id", in.ParticipantID),
			zap.String("team", teamName),
			zap.Int("level", res.CurrentLevel),
		)
		s.publish(ctx, domain.Event{
			Type:          domain.EventLevelAdvanced,
			ParticipantID: in.ParticipantID,
			TeamName:      teamName,
			Data:          map[string]any{"from": in.LevelNumber, "to": res.CurrentLevel},
			At:            s.now(),
		})
	}
	s.touch(ctx, in.ParticipantID)
	return res, nil
}

// advanceIfComplete moves the participant past level when every question
// assigned to it has a passing submission.
func (s *ContestService) advanceIfComplete(ctx context.Context, tx Tx, p domain.Participant, level domain.ExamLevel) (bool, error) {
	ids := level.QuestionIDs()
	if len(ids) == 0 {
		return false, nil
	}
	passed, err := tx.PassedQuestions(ctx, p.ID, ids)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if !passed[id] {
			return false, nil
		}
	}
	if err := tx.AdvanceLevel(ctx, p.ID, level.LevelNumber); err != nil {
		return false, err
	}
	return true, nil
}

// activeQuestion resolves a question against the exam the participant last unlocked.
func (s *ContestService) activeQuestion(ctx context.Context, p domain.Participant, questionID string) (domain.Exam, domain.Question, error) {
	if p.ExamID == "" {
		return domain.Exam{}, domain.Question{}, domain.ErrQuestionNotFound
	}
	exam, err := s.exams.GetExam(ctx, p.ExamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Exam{}, domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Exam{}, domain.Question{}, err
	}
	question, ok := exam.Question(questionID)
	if !ok {
		return domain.Exam{}, domain.Question{}, domain.ErrQuestionNotFound
	}
	return exam, question, nil
}
