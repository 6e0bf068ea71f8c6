// Package progress maintains per-(user, course) progress and derives
// completion percentage from the live learning path.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pathlearn/pathlearn/internal/catalog"
	"github.com/pathlearn/pathlearn/internal/platform/apperr"
	"github.com/pathlearn/pathlearn/internal/xp"
)

// Tracker coordinates progress writes with XP awards and completion reads.
type Tracker struct {
	store    Store
	content  catalog.ContentStore
	resolver *catalog.Resolver
	ledger   *xp.Ledger
}

// NewTracker creates a tracker over the given collaborators.
func NewTracker(store Store, content catalog.ContentStore, resolver *catalog.Resolver, ledger *xp.Ledger) *Tracker {
	return &Tracker{store: store, content: content, resolver: resolver, ledger: ledger}
}

// CompletionResult is the outcome of a chapter-completion call.
type CompletionResult struct {
	First     bool      `json:"first"`
	XPAwarded int       `json:"xp_awarded"`
	Progress  *Progress `json:"progress"`
}

// MarkChapterComplete records a chapter completion. The operation is
// idempotent: repeat calls append nothing and award nothing, and the
// result reports whether this call was the first. XP equal to the
// chapter's reward is awarded exactly once, on the first completion.
//
// The completion write and the XP award are two stores, so a failure
// between them loses the award: the completion is durable, a retry sees
// it as a repeat, and no later call re-awards. Exactly-once on the XP
// side is traded for at-most-once; the returned error carries the award
// failure so the caller can reconcile the ledger against the completion
// record.
func (t *Tracker) MarkChapterComplete(ctx context.Context, userID, courseID, chapterID string, readingPercent int) (*CompletionResult, error) {
	if userID == "" || courseID == "" {
		return nil, apperr.Validation("user id and course id are required")
	}
	if readingPercent < 0 || readingPercent > 100 {
		return nil, apperr.Validation("reading percent must be 0-100, got %d", readingPercent)
	}

	chapter, err := t.content.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	first, err := t.store.AddCompletion(ctx, userID, courseID, ChapterCompletion{
		ChapterID:      chapterID,
		ReadingPercent: readingPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}

	awarded := 0
	if first && chapter.XPReward > 0 {
		res, err := t.ledger.Award(ctx, userID, chapter.XPReward)
		if err != nil {
			// The completion is already durable; surface the award
			// failure instead of pretending nothing happened.
			return nil, fmt.Errorf("award chapter xp: %w", err)
		}
		awarded = res.Awarded
		slog.Info("chapter completed",
			"user_id", userID,
			"course_id", courseID,
			"chapter_id", chapterID,
			"xp_awarded", awarded,
		)
	}

	p, err := t.store.Get(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}

	return &CompletionResult{First: first, XPAwarded: awarded, Progress: p}, nil
}

// RecordQuizResult appends a graded attempt to the user's history. Repeat
// attempts are distinct entries. courseID may be empty for standalone
// quizzes, in which case no progress record is touched.
func (t *Tracker) RecordQuizResult(ctx context.Context, userID, courseID string, r QuizResult) error {
	if userID == "" {
		return apperr.Validation("user id is required")
	}
	if r.QuizID == "" {
		return apperr.Validation("quiz id is required")
	}
	if courseID == "" {
		return nil
	}
	if err := t.store.AppendQuizResult(ctx, userID, courseID, r); err != nil {
		return fmt.Errorf("record quiz result: %w", err)
	}
	return nil
}

// AddTimeSpent accumulates minutes onto the progress record, creating it
// if absent.
func (t *Tracker) AddTimeSpent(ctx context.Context, userID, courseID string, minutes int) (*Progress, error) {
	if userID == "" || courseID == "" {
		return nil, apperr.Validation("user id and course id are required")
	}
	if minutes < 0 {
		return nil, apperr.Validation("minutes must be non-negative, got %d", minutes)
	}
	if minutes == 0 {
		p, err := t.store.Get(ctx, userID, courseID)
		if errors.Is(err, apperr.ErrNotFound) {
			return t.store.AddTime(ctx, userID, courseID, 0)
		}
		return p, err
	}
	return t.store.AddTime(ctx, userID, courseID, minutes)
}

// CompletionSummary is the derived completion state for a (user, course)
// pair. Percentage is always recomputed on read; it is never persisted, so
// learning-path edits can never leave it stale.
type CompletionSummary struct {
	Percentage int              `json:"percentage"`
	Completed  int              `json:"completed"`
	Total      int              `json:"total"`
	Mode       catalog.PathMode `json:"mode"`
}

// Completion computes the user's completion percentage for a course.
// Completed count is |completed chapters| plus distinct passed quizzes; a
// quiz passed twice counts once, and failed attempts never count.
func (t *Tracker) Completion(ctx context.Context, userID, courseID string) (*CompletionSummary, error) {
	resolved, err := t.resolver.Resolve(ctx, courseID, true)
	if err != nil {
		return nil, err
	}

	p, err := t.store.Get(ctx, userID, courseID)
	if errors.Is(err, apperr.ErrNotFound) {
		p = &Progress{UserID: userID, CourseID: courseID}
	} else if err != nil {
		return nil, err
	}

	total := resolved.Total()
	completed := len(p.CompletedChapters) + p.PassedQuizCount()

	pct := 0
	if total > 0 {
		pct = int(math.Round(100 * float64(completed) / float64(total)))
	}

	return &CompletionSummary{
		Percentage: pct,
		Completed:  completed,
		Total:      total,
		Mode:       resolved.Mode,
	}, nil
}
