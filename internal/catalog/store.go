package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// ContentStore persists courses, chapters and quizzes.
//
// Create methods are idempotent on ID: creating an item whose ID already
// exists is a no-op and reports created=false. Approve retries rely on this.
type ContentStore interface {
	CreateCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (*Course, error)

	CreateChapter(ctx context.Context, ch Chapter) (created bool, err error)
	GetChapter(ctx context.Context, id string) (*Chapter, error)
	ListChaptersByCourse(ctx context.Context, courseID string) ([]Chapter, error)
	// MaxChapterOrder returns the highest order number among a course's
	// chapters, or 0 if the course has none.
	MaxChapterOrder(ctx context.Context, courseID string) (int, error)

	CreateQuiz(ctx context.Context, q Quiz) (created bool, err error)
	GetQuiz(ctx context.Context, id string) (*Quiz, error)
	ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error)

	// AppendPathItem appends a reference to the end of a course's learning
	// path. It is a no-op when the path is empty (courses still on legacy
	// counting must not be flipped into ordered mode) and when the item is
	// already present, so approve retries can call it unconditionally.
	AppendPathItem(ctx context.Context, courseID string, item PathItem) error
	// SetLearningPath replaces a course's learning path (user reordering).
	SetLearningPath(ctx context.Context, courseID string, path []PathItem) error
}

// MemoryStore is an in-memory implementation of ContentStore.
type MemoryStore struct {
	mu       sync.RWMutex
	courses  map[string]*Course
	chapters map[string]*Chapter
	quizzes  map[string]*Quiz
}

// NewMemoryStore creates a new in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:  make(map[string]*Course),
		chapters: make(map[string]*Chapter),
		quizzes:  make(map[string]*Quiz),
	}
}

func (s *MemoryStore) CreateCourse(_ context.Context, c Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	if c.LearningPath == nil {
		c.LearningPath = []PathItem{}
	}
	s.courses[c.ID] = &c
	return nil
}

func (s *MemoryStore) GetCourse(_ context.Context, id string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, apperr.NotFound("course", id)
	}
	out := *c
	out.LearningPath = append([]PathItem(nil), c.LearningPath...)
	return &out, nil
}

func (s *MemoryStore) CreateChapter(_ context.Context, ch Chapter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chapters[ch.ID]; exists {
		return false, nil
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	s.chapters[ch.ID] = &ch
	return true, nil
}

func (s *MemoryStore) GetChapter(_ context.Context, id string) (*Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chapters[id]
	if !ok {
		return nil, apperr.NotFound("chapter", id)
	}
	out := *ch
	return &out, nil
}

func (s *MemoryStore) ListChaptersByCourse(_ context.Context, courseID string) ([]Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Chapter
	for _, ch := range s.chapters {
		if ch.CourseID == courseID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *MemoryStore) MaxChapterOrder(_ context.Context, courseID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, ch := range s.chapters {
		if ch.CourseID == courseID && ch.Order > max {
			max = ch.Order
		}
	}
	return max, nil
}

func (s *MemoryStore) CreateQuiz(_ context.Context, q Quiz) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.quizzes[q.ID]; exists {
		return false, nil
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	if q.Questions == nil {
		q.Questions = []Question{}
	}
	s.quizzes[q.ID] = &q
	return true, nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id string) (*Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return nil, apperr.NotFound("quiz", id)
	}
	out := *q
	out.Questions = append([]Question(nil), q.Questions...)
	return &out, nil
}

func (s *MemoryStore) ListQuizzesByCourse(_ context.Context, courseID string) ([]Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Quiz
	for _, q := range s.quizzes {
		if q.CourseID == courseID {
			cp := *q
			cp.Questions = append([]Question(nil), q.Questions...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AppendPathItem(_ context.Context, courseID string, item PathItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return apperr.NotFound("course", courseID)
	}
	if len(c.LearningPath) == 0 {
		return nil
	}
	for _, existing := range c.LearningPath {
		if existing == item {
			return nil
		}
	}
	c.LearningPath = append(c.LearningPath, item)
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetLearningPath(_ context.Context, courseID string, path []PathItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return apperr.NotFound("course", courseID)
	}
	c.LearningPath = append([]PathItem(nil), path...)
	c.UpdatedAt = time.Now()
	return nil
}
