package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// Store persists content requests.
type Store interface {
	Create(ctx context.Context, req ContentRequest) error
	Get(ctx context.Context, id string) (*ContentRequest, error)
	ListByStatus(ctx context.Context, status RequestStatus) ([]ContentRequest, error)

	// Transition moves a request from pending to a terminal status. It is
	// conditional on the request still being pending and reports whether
	// this call won; under concurrent reviews exactly one caller sees
	// true.
	Transition(ctx context.Context, id string, to RequestStatus, reviewedBy, note string, at time.Time) (bool, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*ContentRequest
}

// NewMemoryStore creates a new in-memory request store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*ContentRequest)}
}

func (s *MemoryStore) Create(_ context.Context, req ContentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}
	s.requests[req.ID] = &req
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*ContentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("content request", id)
	}
	out := *req
	return &out, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status RequestStatus) ([]ContentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ContentRequest
	for _, req := range s.requests {
		if req.Status == status {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, to RequestStatus, reviewedBy, note string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return false, apperr.NotFound("content request", id)
	}
	if req.Status != StatusPending {
		return false, nil
	}
	req.Status = to
	req.ReviewedBy = reviewedBy
	req.ReviewNote = note
	req.ReviewedAt = &at
	return true, nil
}
