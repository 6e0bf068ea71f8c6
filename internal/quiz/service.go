package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pathlearn/pathlearn/internal/catalog"
	"github.com/pathlearn/pathlearn/internal/platform/apperr"
	"github.com/pathlearn/pathlearn/internal/progress"
	"github.com/pathlearn/pathlearn/internal/xp"
)

// Service grades submissions and feeds results into progress and XP.
type Service struct {
	content catalog.ContentStore
	tracker *progress.Tracker
	ledger  *xp.Ledger
}

// NewService creates a quiz service.
func NewService(content catalog.ContentStore, tracker *progress.Tracker, ledger *xp.Ledger) *Service {
	return &Service{content: content, tracker: tracker, ledger: ledger}
}

// SubmitInput is one quiz submission. An empty UserID marks a guest
// submission: guests are graded normally but never touch progress or the
// ledger, and always earn zero XP. CourseID is empty for standalone
// quizzes.
type SubmitInput struct {
	UserID   string   `json:"user_id,omitempty"`
	CourseID string   `json:"course_id,omitempty"`
	QuizID   string   `json:"quiz_id"`
	Answers  []Answer `json:"answers"`
}

// Submit grades a submission and, for registered users, records the
// attempt and awards the earned XP.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*GradeResult, error) {
	if in.QuizID == "" {
		return nil, apperr.Validation("quiz id is required")
	}

	q, err := s.content.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return nil, err
	}

	guest := in.UserID == ""
	res := Grade(q, in.Answers, guest)

	if res.NoQuestions {
		slog.Warn("graded quiz with no questions", "quiz_id", q.ID)
	}

	if guest {
		return &res, nil
	}

	if err := s.tracker.RecordQuizResult(ctx, in.UserID, in.CourseID, progress.QuizResult{
		QuizID:   q.ID,
		Score:    res.Score,
		Passed:   res.Passed,
		XPEarned: res.XPEarned,
	}); err != nil {
		return nil, err
	}

	if res.XPEarned > 0 {
		if _, err := s.ledger.Award(ctx, in.UserID, res.XPEarned); err != nil {
			return nil, fmt.Errorf("award quiz xp: %w", err)
		}
	}

	slog.Info("quiz submitted",
		"user_id", in.UserID,
		"quiz_id", q.ID,
		"score", res.Score,
		"passed", res.Passed,
		"xp_earned", res.XPEarned,
	)
	return &res, nil
}

// View returns the taker-facing form of a quiz, without the answer key.
func (s *Service) View(ctx context.Context, quizID string) ([]PublicQuestion, error) {
	q, err := s.content.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return PublicView(q), nil
}
