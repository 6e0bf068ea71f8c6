// Package ticket runs support conversation threads with status
// transitions driven by who replies.
package ticket

import (
	"context"
	"log/slog"
	"time"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// Workflow drives ticket state.
//
// Message arrival moves only two states: a staff reply on an open ticket
// and a user reply on a waiting ticket both mean work is happening, so the
// ticket becomes in-progress. Every other status is untouched by messages;
// resolved and closed tickets keep accepting messages but only an explicit
// SetStatus reopens them. Message rules are a deliberate subset of all
// transitions, not a full state machine.
type Workflow struct {
	store Store
}

// NewWorkflow creates a ticket workflow.
func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

// CreateInput is a new support request.
type CreateInput struct {
	Subject   string `json:"subject"`
	Category  string `json:"category,omitempty"`
	CreatedBy string `json:"created_by"`
	Content   string `json:"content"`
}

// Create opens a ticket with the requester's first message.
func (w *Workflow) Create(ctx context.Context, in CreateInput) (*Ticket, error) {
	if in.Subject == "" {
		return nil, apperr.Validation("subject is required")
	}
	if in.CreatedBy == "" {
		return nil, apperr.Validation("creator is required")
	}
	if in.Content == "" {
		return nil, apperr.Validation("message content is required")
	}

	t, err := w.store.Create(ctx, Ticket{
		Subject:   in.Subject,
		Category:  in.Category,
		CreatedBy: in.CreatedBy,
		Status:    StatusOpen,
		Messages: []Message{{
			Sender:    in.CreatedBy,
			Content:   in.Content,
			Timestamp: time.Now(),
		}},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ticket created", "ticket_id", t.ID, "created_by", in.CreatedBy)
	return t, nil
}

// Get returns a ticket by ID.
func (w *Workflow) Get(ctx context.Context, id string) (*Ticket, error) {
	return w.store.Get(ctx, id)
}

// ListForUser returns the tickets a user created.
func (w *Workflow) ListForUser(ctx context.Context, userID string) ([]Ticket, error) {
	return w.store.ListByCreator(ctx, userID)
}

// AddMessage appends to the thread and applies the automatic status rule
// for the current state.
func (w *Workflow) AddMessage(ctx context.Context, id, sender, content string, isStaff bool) (*Ticket, error) {
	if content == "" {
		return nil, apperr.Validation("message content is required")
	}

	t, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := NextStatusOnMessage(t.Status, isStaff)
	updated, err := w.store.AppendMessage(ctx, id, Message{
		Sender:  sender,
		Content: content,
		IsStaff: isStaff,
	}, t.Status, next)
	if err != nil {
		return nil, err
	}

	if next != "" {
		slog.Info("ticket status advanced by message",
			"ticket_id", id,
			"from", t.Status,
			"to", next,
			"is_staff", isStaff,
		)
	}
	return updated, nil
}

// NextStatusOnMessage returns the automatic transition for a message
// arriving in the given state, or "" for no change.
func NextStatusOnMessage(current Status, isStaff bool) Status {
	switch {
	case isStaff && current == StatusOpen:
		return StatusInProgress
	case !isStaff && current == StatusWaiting:
		return StatusInProgress
	default:
		return ""
	}
}

// Assign sets the assignee. Assignment alone signals work has started, so
// an open ticket advances to in-progress even without a message.
func (w *Workflow) Assign(ctx context.Context, id, admin string) (*Ticket, error) {
	if admin == "" {
		return nil, apperr.Validation("assignee is required")
	}

	t, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := Status("")
	if t.Status == StatusOpen {
		next = StatusInProgress
	}

	updated, err := w.store.SetAssignee(ctx, id, admin, t.Status, next)
	if err != nil {
		return nil, err
	}

	slog.Info("ticket assigned", "ticket_id", id, "assigned_to", admin)
	return updated, nil
}

// SetStatus applies an admin-driven transition to any status. Moving into
// resolved or closed stamps the resolution fields. Arbitrary transitions,
// including reopening, are intentionally allowed here.
func (w *Workflow) SetStatus(ctx context.Context, id string, st Status, actor, resolution string) (*Ticket, error) {
	if !st.Valid() {
		return nil, apperr.Validation("unknown ticket status %q", st)
	}

	var resolvedBy string
	var resolvedAt *time.Time
	if st == StatusResolved || st == StatusClosed {
		now := time.Now()
		resolvedAt = &now
		resolvedBy = actor
	}

	updated, err := w.store.SetStatus(ctx, id, st, resolution, resolvedBy, resolvedAt)
	if err != nil {
		return nil, err
	}

	slog.Info("ticket status set", "ticket_id", id, "status", st, "actor", actor)
	return updated, nil
}

// CanView is the ownership predicate consumed by the external
// authorization collaborator: staff, the creator, and the assignee may
// see a ticket.
func CanView(t *Ticket, userID string, isStaff bool) bool {
	if isStaff {
		return true
	}
	return t.CreatedBy == userID || (t.AssignedTo != "" && t.AssignedTo == userID)
}
