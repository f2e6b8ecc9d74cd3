package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"contest-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ExamLoader fetches exam content from a backing store.
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
	ExamIDForAccessCode(ctx context.Context, accessCode string) (string, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
}

// ExamRepository caches exams with TTL to avoid repeated DB hits.
type ExamRepository struct {
	loader ExamLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedExam
	codes map[string]cachedCode
}

type cachedExam struct {
	exam      domain.Exam
	expiresAt time.Time
}

type cachedCode struct {
	examID    string
	expiresAt time.Time
}

func NewExamRepository(loader ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExam),
		codes:  make(map[string]cachedCode),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[examID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.exam, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("exam:"+examID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[examID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.exam, nil
		}
		r.mu.RUnlock()

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		r.mu.Lock()
		r.cache[examID] = cachedExam{exam: exam, expiresAt: now.Add(r.ttlWithJitter())}
		for _, level := range exam.Levels {
			r.codes[level.AccessCode] = cachedCode{examID: exam.ID, expiresAt: now.Add(r.ttlWithJitter())}
		}
		r.mu.Unlock()
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

func (r *ExamRepository) GetExamByAccessCode(ctx context.Context, accessCode string) (domain.Exam, error) {
	now := r.clock()

	r.mu.RLock()
	entry, ok := r.codes[accessCode]
	r.mu.RUnlock()
	if ok && entry.expiresAt.After(now) {
		return r.GetExam(ctx, entry.examID)
	}

	result, err, _ := r.sf.Do("code:"+accessCode, func() (interface{}, error) {
		return r.loader.ExamIDForAccessCode(ctx, accessCode)
	})
	if err != nil {
		return domain.Exam{}, err
	}
	examID := result.(string)

	r.mu.Lock()
	r.codes[accessCode] = cachedCode{examID: examID, expiresAt: now.Add(r.ttlWithJitter())}
	r.mu.Unlock()
	return r.GetExam(ctx, examID)
}

// ListExams is not cached; it only feeds organizer stats.
func (r *ExamRepository) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return r.loader.ListExams(ctx)
}

// StaticExamLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticExamLoader struct {
	exams map[string]domain.Exam
}

func NewStaticExamLoader(exams map[string]domain.Exam) *StaticExamLoader {
	normalized := make(map[string]domain.Exam, len(exams))
	for id, exam := range exams {
		for i := range exam.Levels {
			exam.Levels[i].ExamID = exam.ID
		}
		normalized[id] = exam
	}
	return &StaticExamLoader{exams: normalized}
}

func (l *StaticExamLoader) LoadExam(_ context.Context, examID string) (domain.Exam, error) {
	if exam, ok := l.exams[examID]; ok {
		return exam, nil
	}
	return domain.Exam{}, domain.ErrExamNotFound
}

func (l *StaticExamLoader) ExamIDForAccessCode(_ context.Context, accessCode string) (string, error) {
	for id, exam := range l.exams {
		if _, ok := exam.LevelByCode(accessCode); ok {
			return id, nil
		}
	}
	return "", domain.ErrLevelNotFound
}

func (l *StaticExamLoader) ListExams(_ context.Context) ([]domain.Exam, error) {
	exams := make([]domain.Exam, 0, len(l.exams))
	for _, exam := range l.exams {
		exams = append(exams, exam)
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].ID < exams[j].ID })
	return exams, nil
}

func (r *ExamRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
