// Package review runs the content-request workflow: user-submitted drafts
// reviewed into materialized content items or rejection records.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pathlearn/pathlearn/internal/catalog"
	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// materializeNS namespaces the deterministic content-item IDs derived from
// request IDs. With the ID fixed per request, a retried approve after a
// partial failure re-creates nothing: the content insert is a no-op and
// only the status transition remains to redo.
var materializeNS = uuid.MustParse("91f7a6de-3a54-4d0b-8f2e-6d1c5b9e0a47")

const defaultRejectNote = "Request does not meet content guidelines"

// Workflow drives content requests through pending → approved/rejected.
type Workflow struct {
	requests   Store
	content    catalog.ContentStore
	rejectNote string
}

// NewWorkflow creates a review workflow. rejectNote may be empty to use
// the built-in default.
func NewWorkflow(requests Store, content catalog.ContentStore, rejectNote string) *Workflow {
	if rejectNote == "" {
		rejectNote = defaultRejectNote
	}
	return &Workflow{requests: requests, content: content, rejectNote: rejectNote}
}

// SubmitInput is a new draft from a user.
type SubmitInput struct {
	Type        RequestType     `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedBy string          `json:"submitted_by"`
}

// Submit validates a draft payload and stores it as a pending request.
func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (*ContentRequest, error) {
	if in.SubmittedBy == "" {
		return nil, apperr.Validation("submitter is required")
	}
	if err := validatePayload(in.Type, in.Payload); err != nil {
		return nil, err
	}

	req := ContentRequest{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Payload:     in.Payload,
		SubmittedBy: in.SubmittedBy,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}
	if err := w.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("store content request: %w", err)
	}

	slog.Info("content request submitted",
		"request_id", req.ID,
		"type", req.Type,
		"submitted_by", req.SubmittedBy,
	)
	return &req, nil
}

// ApproveResult reports the terminal request and the content item it
// produced.
type ApproveResult struct {
	Request       *ContentRequest  `json:"request"`
	ItemType      catalog.ItemType `json:"item_type"`
	CreatedItemID string           `json:"created_item_id"`
}

// Approve materializes a pending request into a content item and moves it
// to approved.
//
// Materialization runs first and is idempotent (deterministic item ID), so
// a crash between the two writes leaves a pending request plus an orphan
// item that the retry adopts. The status transition is the conditional
// commit point: of two racing reviewers, exactly one wins and the other
// gets ErrInvalidState with nothing double-created.
func (w *Workflow) Approve(ctx context.Context, requestID, reviewer, note string) (*ApproveResult, error) {
	req, err := w.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, apperr.InvalidState("request %s is %s, not pending", req.ID, req.Status)
	}

	var itemType catalog.ItemType
	var itemID string
	switch req.Type {
	case TypeChapter:
		itemType = catalog.ItemChapter
		itemID, err = w.materializeChapter(ctx, req)
	case TypeQuiz:
		itemType = catalog.ItemQuiz
		itemID, err = w.materializeQuiz(ctx, req)
	default:
		return nil, apperr.Validation("unknown request type %q", req.Type)
	}
	if err != nil {
		return nil, err
	}

	won, err := w.requests.Transition(ctx, req.ID, StatusApproved, reviewer, note, time.Now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperr.InvalidState("request %s already reviewed", req.ID)
	}

	slog.Info("content request approved",
		"request_id", req.ID,
		"item_type", itemType,
		"item_id", itemID,
		"reviewer", reviewer,
	)

	approved, err := w.requests.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &ApproveResult{Request: approved, ItemType: itemType, CreatedItemID: itemID}, nil
}

// Reject moves a pending request to rejected with a review note. Nothing
// is materialized.
func (w *Workflow) Reject(ctx context.Context, requestID, reviewer, note string) (*ContentRequest, error) {
	if _, err := w.requests.Get(ctx, requestID); err != nil {
		return nil, err
	}
	if note == "" {
		note = w.rejectNote
	}

	won, err := w.requests.Transition(ctx, requestID, StatusRejected, reviewer, note, time.Now())
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperr.InvalidState("request %s already reviewed", requestID)
	}

	slog.Info("content request rejected", "request_id", requestID, "reviewer", reviewer)
	return w.requests.Get(ctx, requestID)
}

// Pending lists requests awaiting review, oldest first.
func (w *Workflow) Pending(ctx context.Context) ([]ContentRequest, error) {
	return w.requests.ListByStatus(ctx, StatusPending)
}

// materializeChapter creates the chapter at the end of the course's
// ordering: next sequential order number, max(existing)+1, defaulting
// to 1.
func (w *Workflow) materializeChapter(ctx context.Context, req *ContentRequest) (string, error) {
	var p ChapterPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return "", apperr.Validation("decode chapter payload: %v", err)
	}

	if _, err := w.content.GetCourse(ctx, p.CourseID); err != nil {
		return "", err
	}

	maxOrder, err := w.content.MaxChapterOrder(ctx, p.CourseID)
	if err != nil {
		return "", fmt.Errorf("next chapter order: %w", err)
	}

	chapterID := materializedID(req.ID)
	_, err = w.content.CreateChapter(ctx, catalog.Chapter{
		ID:          chapterID,
		CourseID:    p.CourseID,
		Title:       p.Title,
		Slug:        slugify(p.Title),
		Content:     p.Content,
		Order:       maxOrder + 1,
		IsPublished: true,
		XPReward:    p.XPReward,
	})
	if err != nil {
		return "", fmt.Errorf("materialize chapter: %w", err)
	}

	// Unconditional: a retry that finds the chapter already created (crash
	// between the two writes) still has to repair the path, and the append
	// itself is a no-op when the reference is already there.
	err = w.content.AppendPathItem(ctx, p.CourseID, catalog.PathItem{Type: catalog.ItemChapter, ID: chapterID})
	if err != nil {
		return "", fmt.Errorf("append to learning path: %w", err)
	}
	return chapterID, nil
}

// materializeQuiz creates the quiz standalone or attached to its target
// chapter.
func (w *Workflow) materializeQuiz(ctx context.Context, req *ContentRequest) (string, error) {
	var p QuizPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return "", apperr.Validation("decode quiz payload: %v", err)
	}

	if p.CourseID != "" {
		if _, err := w.content.GetCourse(ctx, p.CourseID); err != nil {
			return "", err
		}
	}
	if p.ChapterID != "" {
		if _, err := w.content.GetChapter(ctx, p.ChapterID); err != nil {
			return "", err
		}
	}

	quizID := materializedID(req.ID)
	questions := make([]catalog.Question, 0, len(p.Questions))
	for i, q := range p.Questions {
		questions = append(questions, catalog.Question{
			ID:            fmt.Sprintf("%s-q%d", quizID, i+1),
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}

	_, err := w.content.CreateQuiz(ctx, catalog.Quiz{
		ID:           quizID,
		CourseID:     p.CourseID,
		ChapterID:    p.ChapterID,
		Title:        p.Title,
		Slug:         slugify(p.Title),
		Questions:    questions,
		PassingScore: p.PassingScore,
		XPReward:     p.XPReward,
		IsPublished:  true,
	})
	if err != nil {
		return "", fmt.Errorf("materialize quiz: %w", err)
	}

	if p.CourseID != "" {
		err := w.content.AppendPathItem(ctx, p.CourseID, catalog.PathItem{Type: catalog.ItemQuiz, ID: quizID})
		if err != nil {
			return "", fmt.Errorf("append to learning path: %w", err)
		}
	}
	return quizID, nil
}

// materializedID derives the content item's identity from the request ID.
func materializedID(requestID string) string {
	return uuid.NewSHA1(materializeNS, []byte(requestID)).String()
}
