// Package xp maintains the experience-point ledger and derived level.
package xp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// levelDivisor is the XP span of one level.
const levelDivisor = 500

// Level derives a user's level from raw XP. It is never stored, so a later
// XP correction can never leave a stale level behind.
func Level(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/levelDivisor + 1
}

// UserStore applies XP deltas atomically against the stored value.
type UserStore interface {
	// AddXP increments a user's XP by delta and returns the new total.
	// The increment must be applied as a delta in the store, never as a
	// read-modify-write, so concurrent awards cannot lose updates.
	AddXP(ctx context.Context, userID string, delta int) (int, error)
	// GetXP returns a user's current XP, 0 for unknown users.
	GetXP(ctx context.Context, userID string) (int, error)
}

// AwardResult is the outcome of an XP award.
type AwardResult struct {
	UserID  string `json:"user_id"`
	Awarded int    `json:"awarded"`
	Total   int    `json:"total"`
	Level   int    `json:"level"`
}

// Ledger is the XP economy: atomic, non-negative awards plus an optional
// leaderboard.
type Ledger struct {
	users UserStore
	board *Leaderboard
}

// NewLedger creates a ledger. board may be nil to disable the leaderboard.
func NewLedger(users UserStore, board *Leaderboard) *Ledger {
	return &Ledger{users: users, board: board}
}

// Award atomically adds amount XP to a user. Amount must be non-negative;
// zero is a permitted no-op used for guest submissions.
func (l *Ledger) Award(ctx context.Context, userID string, amount int) (AwardResult, error) {
	if userID == "" {
		return AwardResult{}, apperr.Validation("user id is required")
	}
	if amount < 0 {
		return AwardResult{}, apperr.Validation("award amount must be non-negative, got %d", amount)
	}

	if amount == 0 {
		total, err := l.users.GetXP(ctx, userID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return AwardResult{}, fmt.Errorf("read xp: %w", err)
		}
		return AwardResult{UserID: userID, Awarded: 0, Total: total, Level: Level(total)}, nil
	}

	total, err := l.users.AddXP(ctx, userID, amount)
	if err != nil {
		return AwardResult{}, fmt.Errorf("award xp: %w", err)
	}

	if l.board != nil {
		if err := l.board.Add(ctx, userID, amount); err != nil {
			// The ledger is authoritative; a stale leaderboard heals on
			// the next award.
			slog.Warn("leaderboard update failed", "user_id", userID, "error", err)
		}
	}

	return AwardResult{UserID: userID, Awarded: amount, Total: total, Level: Level(total)}, nil
}

// Balance returns a user's current XP and level.
func (l *Ledger) Balance(ctx context.Context, userID string) (AwardResult, error) {
	total, err := l.users.GetXP(ctx, userID)
	if err != nil {
		return AwardResult{}, err
	}
	return AwardResult{UserID: userID, Total: total, Level: Level(total)}, nil
}

// MemoryUserStore is an in-memory UserStore implementation.
type MemoryUserStore struct {
	mu sync.Mutex
	xp map[string]int
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{xp: make(map[string]int)}
}

func (s *MemoryUserStore) AddXP(_ context.Context, userID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.xp[userID] += delta
	return s.xp[userID], nil
}

func (s *MemoryUserStore) GetXP(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.xp[userID], nil
}
