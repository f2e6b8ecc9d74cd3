package postgres

import (
	"context"
	"fmt"
	"time"

	"contest-engine/internal/domain"
	"github.com/uptrace/bun"
)

// SaveExam upserts exam content and re-indexes its access codes.
func SaveExam(ctx context.Context, db *bun.DB, exam domain.Exam) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := &examRow{ID: exam.ID, Title: exam.Title, Data: exam, UpdatedAt: time.Now().UTC()}
		_, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("save exam %s: %w", exam.ID, err)
		}

		if _, err := tx.NewDelete().Model((*accessCodeRow)(nil)).Where("exam_id = ?", exam.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear access codes: %w", err)
		}
		if len(exam.Levels) == 0 {
			return nil
		}
		codes := make([]accessCodeRow, 0, len(exam.Levels))
		for _, level := range exam.Levels {
			codes = append(codes, accessCodeRow{AccessCode: level.AccessCode, ExamID: exam.ID, LevelNumber: level.LevelNumber})
		}
		if _, err := tx.NewInsert().Model(&codes).Exec(ctx); err != nil {
			return fmt.Errorf("index access codes: %w", err)
		}
		return nil
	})
}
