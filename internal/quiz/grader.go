// Package quiz scores submitted answer sets and applies the XP award
// policy.
package quiz

import (
	"math"

	"github.com/pathlearn/pathlearn/internal/catalog"
)

// consolationDivisor: a registered user who fails still earns
// floor(reward/4). Guests earn nothing either way; the asymmetry is an
// anti-abuse rule, not an oversight.
const consolationDivisor = 4

// Answer is one submitted answer, keyed by question ID. Submission order
// is irrelevant.
type Answer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
}

// QuestionResult is the post-grading breakdown for one question. It
// includes the correct answer and explanation, which is safe only after
// submission.
type QuestionResult struct {
	QuestionID    string `json:"question_id"`
	Answered      bool   `json:"answered"`
	Selected      int    `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// GradeResult is the full outcome of grading one submission.
type GradeResult struct {
	QuizID       string           `json:"quiz_id"`
	CorrectCount int              `json:"correct_count"`
	Total        int              `json:"total"`
	Score        int              `json:"score"`
	Passed       bool             `json:"passed"`
	XPEarned     int              `json:"xp_earned"`
	// NoQuestions flags a quiz with an empty question list: graded as
	// score 0 / failed, but a data-integrity condition rather than a
	// normal fail.
	NoQuestions bool             `json:"no_questions,omitempty"`
	Questions   []QuestionResult `json:"questions"`
}

// Grade scores a submission against a quiz's answer key. Matching is by
// question ID: missing answers count as incorrect, unknown answer IDs are
// ignored, and an answer is correct only on exact index match.
func Grade(q *catalog.Quiz, answers []Answer, guest bool) GradeResult {
	res := GradeResult{
		QuizID:    q.ID,
		Total:     len(q.Questions),
		Questions: make([]QuestionResult, 0, len(q.Questions)),
	}

	if res.Total == 0 {
		res.NoQuestions = true
		return res
	}

	submitted := make(map[string]int, len(answers))
	for _, a := range answers {
		submitted[a.QuestionID] = a.Selected
	}

	for _, question := range q.Questions {
		qr := QuestionResult{
			QuestionID:    question.ID,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
		}
		if sel, ok := submitted[question.ID]; ok {
			qr.Answered = true
			qr.Selected = sel
			qr.Correct = sel == question.CorrectAnswer
		}
		if qr.Correct {
			res.CorrectCount++
		}
		res.Questions = append(res.Questions, qr)
	}

	res.Score = int(math.Round(100 * float64(res.CorrectCount) / float64(res.Total)))
	res.Passed = res.Score >= q.PassingScore
	res.XPEarned = earnedXP(q.XPReward, res.Passed, guest)
	return res
}

func earnedXP(reward int, passed, guest bool) int {
	if guest || reward <= 0 {
		return 0
	}
	if passed {
		return reward
	}
	return reward / consolationDivisor
}

// PublicQuestion is a question as served to a taker before grading: no
// correct answer, no explanation.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// PublicView strips the answer key from a quiz for pre-grading display.
func PublicView(q *catalog.Quiz) []PublicQuestion {
	out := make([]PublicQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		out = append(out, PublicQuestion{
			ID:      question.ID,
			Text:    question.Text,
			Options: append([]string(nil), question.Options...),
		})
	}
	return out
}
