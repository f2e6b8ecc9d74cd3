package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contest-engine/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ExamLoader loads exam JSONB from Postgres.
type ExamLoader struct {
	pool *pgxpool.Pool
}

func NewExamLoader(pool *pgxpool.Pool) *ExamLoader {
	return &ExamLoader{pool: pool}
}

func (l *ExamLoader) LoadExam(ctx context.Context, examID string) (domain.Exam, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM exams WHERE id=$1`, examID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	if err != nil {
		return domain.Exam{}, fmt.Errorf("load exam: %w", err)
	}
	return decodeExam(raw)
}

func (l *ExamLoader) ExamIDForAccessCode(ctx context.Context, accessCode string) (string, error) {
	var examID string
	err := l.pool.QueryRow(ctx, `SELECT exam_id FROM exam_access_codes WHERE access_code=$1`, accessCode).Scan(&examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrLevelNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve access code: %w", err)
	}
	return examID, nil
}

func (l *ExamLoader) ListExams(ctx context.Context) ([]domain.Exam, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM exams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []domain.Exam
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exam, err := decodeExam(raw)
		if err != nil {
			return nil, err
		}
		exams = append(exams, exam)
	}
	return exams, rows.Err()
}

func decodeExam(raw []byte) (domain.Exam, error) {
	var exam domain.Exam
	if err := json.Unmarshal(raw, &exam); err != nil {
		return domain.Exam{}, fmt.Errorf("unmarshal exam: %w", err)
	}
	for i := range exam.Levels {
		exam.Levels[i].ExamID = exam.ID
	}
	return exam, nil
}
