package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"contest-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ExamLoader fetches exam content from a backing store (e.g., Postgres).
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
	ExamIDForAccessCode(ctx context.Context, accessCode string) (string, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
}

// ExamRepository caches exam content in Redis and falls back to a loader on cache miss.
// Exams are stored as JSON:   SET contest:exam:{examID} {json}
// Access codes are indexed as: SET contest:code:{accessCode} {examID}
type ExamRepository struct {
	client *redis.Client
	loader ExamLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewExamRepository(client *redis.Client, loader ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	if exam, ok := r.cached(ctx, examID); ok {
		return exam, nil
	}

	result, err, _ := r.sf.Do("exam:"+examID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if exam, ok := r.cached(ctx, examID); ok {
			return exam, nil
		}

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}
		r.store(ctx, exam)
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (r *ExamRepository) GetExamByAccessCode(ctx context.Context, accessCode string) (domain.Exam, error) {
	examID, err := r.client.Get(ctx, codeKey(accessCode)).Result()
	if err == nil && examID != "" {
		return r.GetExam(ctx, examID)
	}

	result, err, _ := r.sf.Do("code:"+accessCode, func() (interface{}, error) {
		return r.loader.ExamIDForAccessCode(ctx, accessCode)
	})
	if err != nil {
		return domain.Exam{}, err
	}
	examID = result.(string)
	_ = r.client.Set(ctx, codeKey(accessCode), examID, r.ttlWithJitter()).Err()
	return r.GetExam(ctx, examID)
}

// ListExams is not cached; it only feeds organizer stats.
func (r *ExamRepository) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return r.loader.ListExams(ctx)
}

// Invalidate drops the cached exam and its access codes after content changes.
func (r *ExamRepository) Invalidate(ctx context.Context, exam domain.Exam) error {
	keys := []string{examKey(exam.ID)}
	for _, level := range exam.Levels {
		keys = append(keys, codeKey(level.AccessCode))
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *ExamRepository) cached(ctx context.Context, examID string) (domain.Exam, bool) {
	raw, err := r.client.Get(ctx, examKey(examID)).Bytes()
	if err != nil {
		return domain.Exam{}, false
	}
	var exam domain.Exam
	if err := json.Unmarshal(raw, &exam); err != nil {
		return domain.Exam{}, false
	}
	for i := range exam.Levels {
		exam.Levels[i].ExamID = exam.ID
	}
	return exam, true
}

// store writes the exam and its access-code index in one pipeline. Cache
// failures are ignored; the loader stays the source of truth.
func (r *ExamRepository) store(ctx context.Context, exam domain.Exam) {
	raw, err := json.Marshal(exam)
	if err != nil {
		return
	}
	ttl := r.ttlWithJitter()
	pipe := r.client.Pipeline()
	pipe.Set(ctx, examKey(exam.ID), raw, ttl)
	for _, level := range exam.Levels {
		pipe.Set(ctx, codeKey(level.AccessCode), exam.ID, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func examKey(examID string) string {
	return "contest:exam:" + examID
}

func codeKey(accessCode string) string {
	return "contest:code:" + accessCode
}

func (r *ExamRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
