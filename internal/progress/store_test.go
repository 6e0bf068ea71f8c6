package progress_test

import (
	"errors"
	"testing"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
	"github.com/pathlearn/pathlearn/internal/progress"
)

func TestMemoryStore_GetBeforeAnyWrite(t *testing.T) {
	store := progress.NewMemoryStore()

	_, err := store.Get(t.Context(), "u1", "c1")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_AddCompletionFirstOnly(t *testing.T) {
	ctx := t.Context()
	store := progress.NewMemoryStore()

	first, err := store.AddCompletion(ctx, "u1", "c1", progress.ChapterCompletion{ChapterID: "ch1", ReadingPercent: 100})
	if err != nil {
		t.Fatalf("AddCompletion() error = %v", err)
	}
	if !first {
		t.Error("first AddCompletion() = false, want true")
	}

	first, err = store.AddCompletion(ctx, "u1", "c1", progress.ChapterCompletion{ChapterID: "ch1", ReadingPercent: 90})
	if err != nil {
		t.Fatalf("repeat AddCompletion() error = %v", err)
	}
	if first {
		t.Error("repeat AddCompletion() = true, want false")
	}

	p, err := store.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(p.CompletedChapters) != 1 {
		t.Errorf("completed chapters = %d, want 1", len(p.CompletedChapters))
	}
	if p.CompletedChapters[0].ReadingPercent != 100 {
		t.Errorf("reading percent = %d, want 100 (repeat must not overwrite)", p.CompletedChapters[0].ReadingPercent)
	}
}

func TestMemoryStore_AppendQuizResultKeepsHistory(t *testing.T) {
	ctx := t.Context()
	store := progress.NewMemoryStore()

	for _, r := range []progress.QuizResult{
		{QuizID: "q1", Score: 40, Passed: false},
		{QuizID: "q1", Score: 85, Passed: true},
	} {
		if err := store.AppendQuizResult(ctx, "u1", "c1", r); err != nil {
			t.Fatalf("AppendQuizResult() error = %v", err)
		}
	}

	p, err := store.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(p.QuizResults) != 2 {
		t.Errorf("quiz results = %d, want 2 (attempts are history)", len(p.QuizResults))
	}
	if p.PassedQuizCount() != 1 {
		t.Errorf("PassedQuizCount() = %d, want 1", p.PassedQuizCount())
	}
}

func TestMemoryStore_AddTimeAccumulates(t *testing.T) {
	ctx := t.Context()
	store := progress.NewMemoryStore()

	if _, err := store.AddTime(ctx, "u1", "c1", 10); err != nil {
		t.Fatalf("AddTime() error = %v", err)
	}
	p, err := store.AddTime(ctx, "u1", "c1", 20)
	if err != nil {
		t.Fatalf("AddTime() error = %v", err)
	}
	if p.TotalTimeSpent != 30 {
		t.Errorf("total time = %d, want 30", p.TotalTimeSpent)
	}
}
