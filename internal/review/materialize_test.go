package review

import (
	"encoding/json"
	"testing"

	"github.com/pathlearn/pathlearn/internal/catalog"
)

// An approve that dies between creating the content item and appending it
// to the learning path leaves an orphan item under the deterministic ID.
// The retry must adopt the orphan and still repair the path.
func TestApprove_RepairsPathAfterPartialMaterialization(t *testing.T) {
	ctx := t.Context()
	content := catalog.NewMemoryStore()
	w := NewWorkflow(NewMemoryStore(), content, "")

	if err := content.CreateCourse(ctx, catalog.Course{ID: "c1", LearningPath: []catalog.PathItem{
		{Type: catalog.ItemChapter, ID: "ch0"},
	}}); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if _, err := content.CreateChapter(ctx, catalog.Chapter{ID: "ch0", CourseID: "c1", Order: 1}); err != nil {
		t.Fatalf("CreateChapter() error = %v", err)
	}

	payload, _ := json.Marshal(ChapterPayload{CourseID: "c1", Title: "Recovered", Content: "body"})
	req, err := w.Submit(ctx, SubmitInput{Type: TypeChapter, Payload: payload, SubmittedBy: "author"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Simulate the crash point: the chapter already exists under the
	// request-derived ID, but the path was never updated.
	orphanID := materializedID(req.ID)
	if _, err := content.CreateChapter(ctx, catalog.Chapter{
		ID:          orphanID,
		CourseID:    "c1",
		Title:       "Recovered",
		Order:       2,
		IsPublished: true,
	}); err != nil {
		t.Fatalf("pre-create chapter: %v", err)
	}

	res, err := w.Approve(ctx, req.ID, "admin", "")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if res.CreatedItemID != orphanID {
		t.Errorf("created item = %s, want the pre-existing %s", res.CreatedItemID, orphanID)
	}

	course, err := content.GetCourse(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	found := 0
	for _, item := range course.LearningPath {
		if item.Type == catalog.ItemChapter && item.ID == orphanID {
			found++
		}
	}
	if found != 1 {
		t.Errorf("approved chapter appears %d times in learning path, want 1: %+v", found, course.LearningPath)
	}
}

// A clean approve followed by checking the path guards the other side of
// the same invariant: the unconditional append never double-lists.
func TestApprove_AppendsExactlyOnce(t *testing.T) {
	ctx := t.Context()
	content := catalog.NewMemoryStore()
	w := NewWorkflow(NewMemoryStore(), content, "")

	if err := content.CreateCourse(ctx, catalog.Course{ID: "c1", LearningPath: []catalog.PathItem{
		{Type: catalog.ItemChapter, ID: "ch0"},
	}}); err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if _, err := content.CreateChapter(ctx, catalog.Chapter{ID: "ch0", CourseID: "c1", Order: 1}); err != nil {
		t.Fatalf("CreateChapter() error = %v", err)
	}

	payload, _ := json.Marshal(QuizPayload{
		CourseID:     "c1",
		Title:        "Attached",
		PassingScore: 70,
		Questions:    []QuestionPayload{{Text: "Q?", Options: []string{"a", "b"}, CorrectAnswer: 0}},
	})
	req, err := w.Submit(ctx, SubmitInput{Type: TypeQuiz, Payload: payload, SubmittedBy: "author"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res, err := w.Approve(ctx, req.ID, "admin", "")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	course, _ := content.GetCourse(ctx, "c1")
	found := 0
	for _, item := range course.LearningPath {
		if item.Type == catalog.ItemQuiz && item.ID == res.CreatedItemID {
			found++
		}
	}
	if found != 1 {
		t.Errorf("approved quiz appears %d times in learning path, want 1", found)
	}
}
