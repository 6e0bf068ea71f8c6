package xp

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pathlearn/pathlearn/internal/platform/cache"
)

const leaderboardKey = "xp:leaderboard"

// Leaderboard mirrors XP totals into a Redis sorted set for cheap top-N
// queries. The SQL ledger stays authoritative.
type Leaderboard struct {
	client *redis.Client
}

// NewLeaderboard creates a leaderboard over the given cache.
func NewLeaderboard(c *cache.Cache) *Leaderboard {
	return &Leaderboard{client: c.Client}
}

// Entry is one leaderboard row.
type Entry struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
}

// Add increments a user's leaderboard score.
func (b *Leaderboard) Add(ctx context.Context, userID string, delta int) error {
	if err := b.client.ZIncrBy(ctx, leaderboardKey, float64(delta), userID).Err(); err != nil {
		return fmt.Errorf("leaderboard incr: %w", err)
	}
	return nil
}

// Top returns the n highest-XP users, best first.
func (b *Leaderboard) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := b.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard range: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		userID, ok := row.Member.(string)
		if !ok {
			continue
		}
		total := int(row.Score)
		entries = append(entries, Entry{UserID: userID, XP: total, Level: Level(total)})
	}
	return entries, nil
}
