package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// PathMode tells callers how a course's item sequence was derived. Legacy
// results carry no ordering guarantee and exist only for courses created
// before explicit learning paths; callers must not treat them as sequences.
type PathMode string

const (
	ModeOrdered PathMode = "ordered"
	ModeLegacy  PathMode = "legacy"
)

// ResolvedItem is a live learning-path member.
type ResolvedItem struct {
	Type        ItemType `json:"type"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	IsPublished bool     `json:"is_published"`
}

// ResolvedPath is the concrete sequence for a course plus the mode that
// produced it.
type ResolvedPath struct {
	Mode  PathMode       `json:"mode"`
	Items []ResolvedItem `json:"items"`
}

// Total returns the number of live items, the denominator for completion.
func (p ResolvedPath) Total() int { return len(p.Items) }

// Resolver turns a course's learning path into a sequence of live items.
type Resolver struct {
	store ContentStore
}

// NewResolver creates a resolver over the given content store.
func NewResolver(store ContentStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the live items for a course in path order. References to
// deleted items are dropped, never surfaced as errors. When publishedOnly
// is set, unpublished items are dropped as well.
//
// A course with an empty learning path resolves in legacy mode: published
// chapters plus published quizzes, counted without ordering.
func (r *Resolver) Resolve(ctx context.Context, courseID string, publishedOnly bool) (ResolvedPath, error) {
	course, err := r.store.GetCourse(ctx, courseID)
	if err != nil {
		return ResolvedPath{}, err
	}

	if len(course.LearningPath) == 0 {
		return r.resolveLegacy(ctx, courseID)
	}

	items := make([]ResolvedItem, 0, len(course.LearningPath))
	for _, ref := range course.LearningPath {
		item, ok, err := r.lookup(ctx, ref)
		if err != nil {
			return ResolvedPath{}, err
		}
		if !ok {
			slog.Warn("dropping dead learning path reference",
				"course_id", courseID,
				"item_type", ref.Type,
				"item_id", ref.ID,
			)
			continue
		}
		if publishedOnly && !item.IsPublished {
			continue
		}
		items = append(items, item)
	}

	return ResolvedPath{Mode: ModeOrdered, Items: items}, nil
}

// lookup resolves one tagged reference. A missing item is reported via ok,
// not as an error; anything else from the store propagates.
func (r *Resolver) lookup(ctx context.Context, ref PathItem) (ResolvedItem, bool, error) {
	switch ref.Type {
	case ItemChapter:
		ch, err := r.store.GetChapter(ctx, ref.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			return ResolvedItem{}, false, nil
		}
		if err != nil {
			return ResolvedItem{}, false, err
		}
		return ResolvedItem{Type: ItemChapter, ID: ch.ID, Title: ch.Title, IsPublished: ch.IsPublished}, true, nil
	case ItemQuiz:
		q, err := r.store.GetQuiz(ctx, ref.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			return ResolvedItem{}, false, nil
		}
		if err != nil {
			return ResolvedItem{}, false, err
		}
		return ResolvedItem{Type: ItemQuiz, ID: q.ID, Title: q.Title, IsPublished: q.IsPublished}, true, nil
	default:
		return ResolvedItem{}, false, fmt.Errorf("unknown item type %q: %w", ref.Type, apperr.ErrValidation)
	}
}

// resolveLegacy counts a course's published chapters and quizzes
// independently of any ordering.
func (r *Resolver) resolveLegacy(ctx context.Context, courseID string) (ResolvedPath, error) {
	chapters, err := r.store.ListChaptersByCourse(ctx, courseID)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("legacy chapter count: %w", err)
	}
	quizzes, err := r.store.ListQuizzesByCourse(ctx, courseID)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("legacy quiz count: %w", err)
	}

	var items []ResolvedItem
	for _, ch := range chapters {
		if ch.IsPublished {
			items = append(items, ResolvedItem{Type: ItemChapter, ID: ch.ID, Title: ch.Title, IsPublished: true})
		}
	}
	for _, q := range quizzes {
		if q.IsPublished {
			items = append(items, ResolvedItem{Type: ItemQuiz, ID: q.ID, Title: q.Title, IsPublished: true})
		}
	}

	return ResolvedPath{Mode: ModeLegacy, Items: items}, nil
}
