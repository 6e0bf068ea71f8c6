package progress

import (
	"context"
	"sync"
	"time"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// Store persists per-(user, course) progress records.
//
// The uniqueness of (userID, courseID) is the store's responsibility:
// racing creations must merge into one record, never duplicate. The
// conditional primitives below exist so callers never need a separate
// read-check-write round trip.
type Store interface {
	// Get returns the progress record, or apperr.ErrNotFound if the pair
	// has no record yet.
	Get(ctx context.Context, userID, courseID string) (*Progress, error)

	// AddCompletion upserts the progress record and inserts the chapter
	// completion only if absent. It reports whether this call was the
	// first completion of that chapter.
	AddCompletion(ctx context.Context, userID, courseID string, c ChapterCompletion) (first bool, err error)

	// AppendQuizResult upserts the progress record and appends the
	// attempt unconditionally.
	AppendQuizResult(ctx context.Context, userID, courseID string, r QuizResult) error

	// AddTime upserts the progress record and atomically accumulates
	// minutes into totalTimeSpent.
	AddTime(ctx context.Context, userID, courseID string, minutes int) (*Progress, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[progressKey]*Progress
}

type progressKey struct {
	userID   string
	courseID string
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[progressKey]*Progress)}
}

func (s *MemoryStore) Get(_ context.Context, userID, courseID string) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[progressKey{userID, courseID}]
	if !ok {
		return nil, apperr.NotFound("progress", userID+"/"+courseID)
	}
	return copyProgress(p), nil
}

func (s *MemoryStore) AddCompletion(_ context.Context, userID, courseID string, c ChapterCompletion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.upsertLocked(userID, courseID)
	if p.HasCompletedChapter(c.ChapterID) {
		return false, nil
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	p.CompletedChapters = append(p.CompletedChapters, c)
	p.LastAccessedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) AppendQuizResult(_ context.Context, userID, courseID string, r QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
	p := s.upsertLocked(userID, courseID)
	p.QuizResults = append(p.QuizResults, r)
	p.LastAccessedAt = time.Now()
	return nil
}

func (s *MemoryStore) AddTime(_ context.Context, userID, courseID string, minutes int) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.upsertLocked(userID, courseID)
	p.TotalTimeSpent += minutes
	p.LastAccessedAt = time.Now()
	return copyProgress(p), nil
}

// upsertLocked finds or creates the record. Callers hold the mutex, which
// makes check-then-create one critical section.
func (s *MemoryStore) upsertLocked(userID, courseID string) *Progress {
	key := progressKey{userID, courseID}
	p, ok := s.records[key]
	if !ok {
		p = &Progress{
			UserID:            userID,
			CourseID:          courseID,
			CompletedChapters: []ChapterCompletion{},
			QuizResults:       []QuizResult{},
			CreatedAt:         time.Now(),
		}
		s.records[key] = p
	}
	return p
}

func copyProgress(p *Progress) *Progress {
	out := *p
	out.CompletedChapters = append([]ChapterCompletion(nil), p.CompletedChapters...)
	out.QuizResults = append([]QuizResult(nil), p.QuizResults...)
	return &out
}
