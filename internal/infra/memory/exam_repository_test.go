package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest-engine/internal/domain"
)

func TestExamRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ExamLoader: NewStaticExamLoader(map[string]domain.Exam{
			"exam-1": sampleExam(),
		}),
	}
	repo := NewExamRepository(loader, time.Minute)

	if _, err := repo.GetExam(context.Background(), "exam-1"); err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetExam(context.Background(), "exam-1"); err != nil {
		t.Fatalf("get exam 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestExamRepositoryResolvesAccessCodeFromCache(t *testing.T) {
	loader := &countingLoader{
		ExamLoader: NewStaticExamLoader(map[string]domain.Exam{
			"exam-1": sampleExam(),
		}),
	}
	repo := NewExamRepository(loader, time.Minute)

	exam, err := repo.GetExamByAccessCode(context.Background(), "CODE-2")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if exam.ID != "exam-1" {
		t.Fatalf("expected exam-1, got %s", exam.ID)
	}
	level, ok := exam.LevelByCode("CODE-2")
	if !ok || level.ExamID != "exam-1" || level.LevelNumber != 2 {
		t.Fatalf("unexpected level %+v", level)
	}

	// The first load indexed every access code of the exam.
	if _, err := repo.GetExamByAccessCode(context.Background(), "CODE-1"); err != nil {
		t.Fatalf("get by code 2: %v", err)
	}
	if loader.codeCalls != 1 || loader.calls != 1 {
		t.Fatalf("expected one code lookup and one load, got %d/%d", loader.codeCalls, loader.calls)
	}
}

func TestExamRepositoryUnknownCode(t *testing.T) {
	repo := NewExamRepository(NewStaticExamLoader(map[string]domain.Exam{"exam-1": sampleExam()}), time.Minute)
	_, err := repo.GetExamByAccessCode(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	ExamLoader
	calls     int
	codeCalls int
}

func (l *countingLoader) LoadExam(ctx context.Context, examID string) (domain.Exam, error) {
	l.calls++
	return l.ExamLoader.LoadExam(ctx, examID)
}

func (l *countingLoader) ExamIDForAccessCode(ctx context.Context, code string) (string, error) {
	l.codeCalls++
	return l.ExamLoader.ExamIDForAccessCode(ctx, code)
}

func sampleExam() domain.Exam {
	return domain.Exam{
		ID:    "exam-1",
		Title: "Qualifier",
		Levels: []domain.ExamLevel{
			{
				ID:          "lvl-1",
				LevelNumber: 1,
				AccessCode:  "CODE-1",
				TimeLimit:   30,
				Questions: []domain.Question{
					{ID: "q1", Title: "Sum", Points: 10, TestCases: []domain.TestCase{{ID: "t1", Input: "1 2", ExpectedOutput: "3"}}},
				},
			},
			{
				ID:          "lvl-2",
				LevelNumber: 2,
				AccessCode:  "CODE-2",
				TimeLimit:   30,
				Questions: []domain.Question{
					{ID: "q2", Title: "Product", Points: 10, TestCases: []domain.TestCase{{ID: "t2", Input: "2 3", ExpectedOutput: "6"}}},
				},
			},
		},
	}
}
