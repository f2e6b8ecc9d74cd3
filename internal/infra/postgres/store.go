package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest-engine/internal/app"
	"contest-engine/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store persists participants, submissions, attempts and violations with bun.
// Participant rows are locked FOR UPDATE so transactions on the same team
// serialize; the level advance is additionally guarded on the previous level.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, btx bun.Tx) error {
		return fn(ctx, &tx{db: btx})
	})
	return mapError(err)
}

func (s *Store) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	row := new(participantRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Order("created_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ListSubmissions(ctx context.Context, participantID string) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("participant_id = ?", participantID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) SolvedCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ParticipantID string `bun:"participant_id"`
		Solved        int    `bun:"solved"`
	}
	err := s.db.NewSelect().
		Model((*submissionRow)(nil)).
		Column("participant_id").
		ColumnExpr("COUNT(DISTINCT question_id) AS solved").
		Where("status = ?", string(domain.StatusPassed)).
		Group("participant_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("solved counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.ParticipantID] = r.Solved
	}
	return counts, nil
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) error {
	if _, err := s.db.NewInsert().Model(newParticipantRow(p)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTeamNameTaken
		}
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// DeleteParticipant relies on ON DELETE CASCADE for the dependent rows.
func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*participantRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

type tx struct {
	db bun.IDB
}

func (t *tx) LockParticipant(ctx context.Context, id string) (domain.Participant, error) {
	row := new(participantRow)
	err := t.db.NewSelect().Model(row).Where("id = ?", id).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("lock participant: %w", err)
	}
	return row.toDomain(), nil
}

func (t *tx) SaveParticipant(ctx context.Context, p domain.Participant) error {
	res, err := t.db.NewUpdate().
		Model(newParticipantRow(p)).
		Column("exam_id", "score", "total_time", "violation_count", "extra_attempts",
			"is_locked", "is_started", "time_remaining", "last_active").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (t *tx) AdvanceLevel(ctx context.Context, participantID string, from int) error {
	res, err := t.db.NewUpdate().
		Model((*participantRow)(nil)).
		Set("current_level = ?", from+1).
		Where("id = ?", participantID).
		Where("current_level = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("advance level: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance level: %w", err)
	}
	if n == 0 {
		return domain.ErrPersistenceConflict
	}
	return nil
}

func (t *tx) Attempts(ctx context.Context, participantID, levelID string) (int, error) {
	var attempts int
	err := t.db.NewSelect().
		Model((*levelAttemptRow)(nil)).
		Column("attempts").
		Where("participant_id = ?", participantID).
		Where("level_id = ?", levelID).
		Scan(ctx, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (t *tx) IncrementAttempts(ctx context.Context, participantID, levelID string) (int, error) {
	row := &levelAttemptRow{ParticipantID: participantID, LevelID: levelID, Attempts: 1}
	_, err := t.db.NewInsert().
		Model(row).
		On("CONFLICT (participant_id, level_id) DO UPDATE").
		Set("attempts = la.attempts + 1").
		Returning("attempts").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return row.Attempts, nil
}

func (t *tx) ResetAttempts(ctx context.Context, participantID, levelID string) error {
	_, err := t.db.NewDelete().
		Model((*levelAttemptRow)(nil)).
		Where("participant_id = ?", participantID).
		Where("level_id = ?", levelID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

func (t *tx) AppendSubmission(ctx context.Context, sub domain.Submission) error {
	row := &submissionRow{
		ID:            sub.ID,
		ParticipantID: sub.ParticipantID,
		QuestionID:    sub.QuestionID,
		LevelNumber:   sub.LevelNumber,
		Code:          sub.Code,
		Language:      sub.Language,
		Score:         sub.Score,
		TimeTaken:     sub.TimeTaken,
		Status:        string(sub.Status),
		CreatedAt:     sub.CreatedAt,
	}
	if _, err := t.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (t *tx) BestScoreSum(ctx context.Context, participantID string) (int, error) {
	best := t.db.NewSelect().
		Model((*submissionRow)(nil)).
		ColumnExpr("MAX(score) AS best").
		Where("participant_id = ?", participantID).
		Group("question_id")
	return t.sumOf(ctx, best)
}

func (t *tx) TotalTime(ctx context.Context, participantID string) (int, error) {
	longest := t.db.NewSelect().
		Model((*submissionRow)(nil)).
		ColumnExpr("MAX(time_taken) AS best").
		Where("participant_id = ?", participantID).
		Group("level_number")
	return t.sumOf(ctx, longest)
}

// sumOf sums the "best" column of a grouped subquery.
func (t *tx) sumOf(ctx context.Context, sub *bun.SelectQuery) (int, error) {
	var sum int
	err := t.db.NewSelect().
		TableExpr("(?) AS g", sub).
		ColumnExpr("COALESCE(SUM(g.best), 0)").
		Scan(ctx, &sum)
	if err != nil {
		return 0, fmt.Errorf("aggregate submissions: %w", err)
	}
	return sum, nil
}

func (t *tx) PassedQuestions(ctx context.Context, participantID string, questionIDs []string) (map[string]bool, error) {
	passed := make(map[string]bool)
	if len(questionIDs) == 0 {
		return passed, nil
	}
	var ids []string
	err := t.db.NewSelect().
		Model((*submissionRow)(nil)).
		ColumnExpr("DISTINCT question_id").
		Where("participant_id = ?", participantID).
		Where("status = ?", string(domain.StatusPassed)).
		Where("question_id IN (?)", bun.In(questionIDs)).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("passed questions: %w", err)
	}
	for _, id := range ids {
		passed[id] = true
	}
	return passed, nil
}

func (t *tx) AppendViolation(ctx context.Context, v domain.Violation) error {
	row := &violationRow{
		ID:            v.ID,
		ParticipantID: v.ParticipantID,
		Reason:        v.Reason,
		ScoreBefore:   v.ScoreBefore,
		ScoreAfter:    v.ScoreAfter,
		CreatedAt:     v.CreatedAt,
	}
	if _, err := t.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append violation: %w", err)
	}
	return nil
}

// mapError turns serialization failures and deadlocks into a retryable conflict.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", domain.ErrPersistenceConflict, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
