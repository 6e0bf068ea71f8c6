package review_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pathlearn/pathlearn/internal/catalog"
	"github.com/pathlearn/pathlearn/internal/platform/apperr"
	"github.com/pathlearn/pathlearn/internal/review"
)

func newWorkflow(t *testing.T) (*review.Workflow, *catalog.MemoryStore) {
	t.Helper()
	content := catalog.NewMemoryStore()
	return review.NewWorkflow(review.NewMemoryStore(), content, ""), content
}

func submitChapter(t *testing.T, w *review.Workflow, p review.ChapterPayload) *review.ContentRequest {
	t.Helper()
	payload, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := w.Submit(context.Background(), review.SubmitInput{
		Type:        review.TypeChapter,
		Payload:     payload,
		SubmittedBy: "author",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return req
}

func TestWorkflow_SubmitValidatesPayload(t *testing.T) {
	w, _ := newWorkflow(t)

	tests := []struct {
		name    string
		in      review.SubmitInput
		wantErr error
	}{
		{
			name: "missing submitter",
			in: review.SubmitInput{
				Type:    review.TypeChapter,
				Payload: json.RawMessage(`{"course_id":"c1","title":"T","content":"C"}`),
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "chapter missing title",
			in: review.SubmitInput{
				Type:        review.TypeChapter,
				Payload:     json.RawMessage(`{"course_id":"c1","content":"C"}`),
				SubmittedBy: "author",
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "unknown type",
			in: review.SubmitInput{
				Type:        review.RequestType("course"),
				Payload:     json.RawMessage(`{}`),
				SubmittedBy: "author",
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "quiz answer out of range",
			in: review.SubmitInput{
				Type: review.TypeQuiz,
				Payload: json.RawMessage(`{
					"title": "Q",
					"passing_score": 70,
					"questions": [{"text": "T?", "options": ["a","b"], "correct_answer": 2}]
				}`),
				SubmittedBy: "author",
			},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Submit(t.Context(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorkflow_ApproveChapter(t *testing.T) {
	ctx := t.Context()
	w, content := newWorkflow(t)

	if err := content.CreateCourse(ctx, catalog.Course{ID: "c1", LearningPath: []catalog.PathItem{
		{Type: catalog.ItemChapter, ID: "existing"},
	}}); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if _, err := content.CreateChapter(ctx, catalog.Chapter{ID: "existing", CourseID: "c1", Order: 2}); err != nil {
		t.Fatalf("CreateChapter() error = %v", err)
	}

	req := submitChapter(t, w, review.ChapterPayload{
		CourseID: "c1",
		Title:    "Días de Go",
		Content:  "body",
		XPReward: 40,
	})

	res, err := w.Approve(ctx, req.ID, "admin", "looks good")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if res.Request.Status != review.StatusApproved {
		t.Errorf("status = %s, want approved", res.Request.Status)
	}
	if res.ItemType != catalog.ItemChapter || res.CreatedItemID == "" {
		t.Errorf("result = %+v, want a created chapter ID", res)
	}

	ch, err := content.GetChapter(ctx, res.CreatedItemID)
	if err != nil {
		t.Fatalf("GetChapter() error = %v", err)
	}
	if !ch.IsPublished {
		t.Error("materialized chapter should be published")
	}
	if ch.Order != 3 {
		t.Errorf("order = %d, want 3 (max existing + 1)", ch.Order)
	}
	if ch.Slug != "dias-de-go" {
		t.Errorf("slug = %q, want %q", ch.Slug, "dias-de-go")
	}
	if ch.XPReward != 40 {
		t.Errorf("xp reward = %d, want 40", ch.XPReward)
	}

	course, _ := content.GetCourse(ctx, "c1")
	last := course.LearningPath[len(course.LearningPath)-1]
	if last.Type != catalog.ItemChapter || last.ID != res.CreatedItemID {
		t.Errorf("learning path tail = %+v, want the new chapter appended", last)
	}
}

func TestWorkflow_ApproveTwiceFails(t *testing.T) {
	ctx := t.Context()
	w, content := newWorkflow(t)

	if err := content.CreateCourse(ctx, catalog.Course{ID: "c1"}); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	req := submitChapter(t, w, review.ChapterPayload{CourseID: "c1", Title: "T", Content: "C"})

	if _, err := w.Approve(ctx, req.ID, "admin", ""); err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}

	_, err := w.Approve(ctx, req.ID, "other-admin", "")
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("second Approve() error = %v, want ErrInvalidState", err)
	}
}

func TestWorkflow_ApproveUnknownCourse(t *testing.T) {
	w, _ := newWorkflow(t)
	req := submitChapter(t, w, review.ChapterPayload{CourseID: "missing", Title: "T", Content: "C"})

	_, err := w.Approve(t.Context(), req.ID, "admin", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Approve() error = %v, want ErrNotFound", err)
	}

	// The failed approve must leave the request reviewable.
	got, err := w.Pending(t.Context())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("pending = %d, want 1 (request stays pending after failed materialization)", len(got))
	}
}

func TestWorkflow_ApproveQuiz(t *testing.T) {
	ctx := t.Context()
	w, content := newWorkflow(t)

	payload, _ := json.Marshal(review.QuizPayload{
		Title:        "Standalone Quiz",
		PassingScore: 60,
		XPReward:     50,
		Questions: []review.QuestionPayload{
			{Text: "One?", Options: []string{"a", "b"}, CorrectAnswer: 0},
			{Text: "Two?", Options: []string{"a", "b", "c"}, CorrectAnswer: 2},
		},
	})
	req, err := w.Submit(ctx, review.SubmitInput{Type: review.TypeQuiz, Payload: payload, SubmittedBy: "author"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res, err := w.Approve(ctx, req.ID, "admin", "")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	q, err := content.GetQuiz(ctx, res.CreatedItemID)
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if len(q.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(q.Questions))
	}
	for i, question := range q.Questions {
		if question.ID == "" {
			t.Errorf("question %d has no assigned ID", i)
		}
	}
	if !q.IsPublished || q.PassingScore != 60 {
		t.Errorf("quiz = %+v, want published with passing score 60", q)
	}
}

func TestWorkflow_RejectUsesDefaultNote(t *testing.T) {
	ctx := t.Context()
	w, _ := newWorkflow(t)
	req := submitChapter(t, w, review.ChapterPayload{CourseID: "c1", Title: "T", Content: "C"})

	rejected, err := w.Reject(ctx, req.ID, "admin", "")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.Status != review.StatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	if rejected.ReviewNote == "" {
		t.Error("review note is empty, want the default note")
	}
	if rejected.ReviewedBy != "admin" || rejected.ReviewedAt == nil {
		t.Errorf("request = %+v, want reviewer and timestamp stamped", rejected)
	}

	// Rejection must not materialize anything, and the terminal state is
	// one-way.
	if _, err := w.Approve(ctx, req.ID, "admin", ""); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("Approve() after reject error = %v, want ErrInvalidState", err)
	}
}

func TestWorkflow_RejectKeepsExplicitNote(t *testing.T) {
	w, _ := newWorkflow(t)
	req := submitChapter(t, w, review.ChapterPayload{CourseID: "c1", Title: "T", Content: "C"})

	rejected, err := w.Reject(t.Context(), req.ID, "admin", "needs more depth")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.ReviewNote != "needs more depth" {
		t.Errorf("note = %q, want the explicit note", rejected.ReviewNote)
	}
}

func TestWorkflow_PendingOrder(t *testing.T) {
	ctx := t.Context()
	w, _ := newWorkflow(t)

	first := submitChapter(t, w, review.ChapterPayload{CourseID: "c1", Title: "First", Content: "C"})
	second := submitChapter(t, w, review.ChapterPayload{CourseID: "c1", Title: "Second", Content: "C"})

	pending, err := w.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Error("pending list not oldest-first")
	}
}
