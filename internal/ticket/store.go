package ticket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// Store persists tickets and assigns their sequential IDs.
type Store interface {
	// Create stores a new ticket and assigns the next sequential ID.
	Create(ctx context.Context, t Ticket) (*Ticket, error)
	Get(ctx context.Context, id string) (*Ticket, error)
	ListByCreator(ctx context.Context, userID string) ([]Ticket, error)

	// AppendMessage appends to the thread and, when to is non-empty,
	// advances the status in the same write, but only if the ticket is
	// still in from. A transition computed from a stale read must not
	// clobber a concurrent explicit status change.
	AppendMessage(ctx context.Context, id string, m Message, from, to Status) (*Ticket, error)
	// SetAssignee sets the assignee with the same conditional status
	// advance as AppendMessage.
	SetAssignee(ctx context.Context, id, admin string, from, to Status) (*Ticket, error)
	// SetStatus applies a direct status change with optional resolution
	// stamping.
	SetStatus(ctx context.Context, id string, st Status, resolution, resolvedBy string, resolvedAt *time.Time) (*Ticket, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[string]*Ticket
	nextSeq int
}

// NewMemoryStore creates a new in-memory ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*Ticket)}
}

func (s *MemoryStore) Create(_ context.Context, t Ticket) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	t.ID = fmt.Sprintf("TKT-%06d", s.nextSeq)
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Messages == nil {
		t.Messages = []Message{}
	}
	s.tickets[t.ID] = &t
	return copyTicket(&t), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket", id)
	}
	return copyTicket(t), nil
}

func (s *MemoryStore) ListByCreator(_ context.Context, userID string) ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Ticket
	for _, t := range s.tickets {
		if t.CreatedBy == userID {
			out = append(out, *copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, id string, m Message, from, to Status) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket", id)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	t.Messages = append(t.Messages, m)
	if to != "" && t.Status == from {
		t.Status = to
	}
	t.UpdatedAt = time.Now()
	return copyTicket(t), nil
}

func (s *MemoryStore) SetAssignee(_ context.Context, id, admin string, from, to Status) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket", id)
	}
	t.AssignedTo = admin
	if to != "" && t.Status == from {
		t.Status = to
	}
	t.UpdatedAt = time.Now()
	return copyTicket(t), nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, st Status, resolution, resolvedBy string, resolvedAt *time.Time) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket", id)
	}
	t.Status = st
	if resolution != "" {
		t.Resolution = resolution
	}
	if resolvedBy != "" {
		t.ResolvedBy = resolvedBy
	}
	if resolvedAt != nil {
		t.ResolvedAt = resolvedAt
	}
	t.UpdatedAt = time.Now()
	return copyTicket(t), nil
}

func copyTicket(t *Ticket) *Ticket {
	out := *t
	out.Messages = append([]Message(nil), t.Messages...)
	return &out
}
