package ticket

import "time"

// Status is a ticket's lifecycle state. resolved and closed are terminal
// for the automatic rules only: they still accept messages, and reopening
// requires an explicit SetStatus call.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusWaiting    Status = "waiting"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusWaiting, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Message is one entry in a ticket's conversation thread. The thread is
// append-only.
type Message struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	IsStaff   bool      `json:"is_staff"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticket is a support conversation. ID is the human-readable sequential
// identifier, assigned once at creation and immutable.
type Ticket struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Category   string     `json:"category,omitempty"`
	CreatedBy  string     `json:"created_by"`
	Status     Status     `json:"status"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	Messages   []Message  `json:"messages"`
	Resolution string     `json:"resolution,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
