package review

import (
	"encoding/json"
	"time"
)

// RequestStatus is the lifecycle state of a content request. pending is
// the only non-terminal state; approved and rejected are one-way.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// RequestType selects the payload shape and the materialization target.
type RequestType string

const (
	TypeChapter RequestType = "chapter"
	TypeQuiz    RequestType = "quiz"
)

// ContentRequest is a user-submitted draft awaiting review.
type ContentRequest struct {
	ID          string          `json:"id"`
	Type        RequestType     `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedBy string          `json:"submitted_by"`
	Status      RequestStatus   `json:"status"`
	ReviewedBy  string          `json:"reviewed_by,omitempty"`
	ReviewNote  string          `json:"review_note,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
}

// ChapterPayload is the contentData shape for chapter requests.
type ChapterPayload struct {
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	XPReward int    `json:"xp_reward"`
}

// QuizPayload is the contentData shape for quiz requests. CourseID and
// ChapterID are both optional: a quiz may stand alone or attach to a
// chapter.
type QuizPayload struct {
	CourseID     string            `json:"course_id,omitempty"`
	ChapterID    string            `json:"chapter_id,omitempty"`
	Title        string            `json:"title"`
	PassingScore int               `json:"passing_score"`
	XPReward     int               `json:"xp_reward"`
	Questions    []QuestionPayload `json:"questions"`
}

// QuestionPayload is one draft question.
type QuestionPayload struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}
