package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

// Spreadsheet import lets course authors draft a quiz from a question
// bank instead of hand-writing JSON. Expected layout, first sheet:
//
//	Question | Option A | Option B | Option C | Option D | Correct | Explanation
//
// Option C and D may be blank. Correct is an option letter (A-D) or a
// 1-based option number. The first row is treated as a header and
// skipped.

const maxImportOptions = 4

// QuizMeta carries the fields a spreadsheet cannot: where the quiz lives
// and how it is scored.
type QuizMeta struct {
	CourseID     string `json:"course_id,omitempty"`
	ChapterID    string `json:"chapter_id,omitempty"`
	Title        string `json:"title"`
	PassingScore int    `json:"passing_score"`
	XPReward     int    `json:"xp_reward"`
}

// ParseQuizWorkbook reads an .xlsx question bank into draft questions.
func ParseQuizWorkbook(r io.Reader) ([]QuestionPayload, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("open workbook: %v", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("workbook has no sheets")
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	var questions []QuestionPayload
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		q, err := parseQuestionRow(row)
		if err != nil {
			return nil, apperr.Validation("row %d: %v", i+1, err)
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, apperr.Validation("workbook contains no questions")
	}
	return questions, nil
}

func parseQuestionRow(row []string) (QuestionPayload, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	q := QuestionPayload{Text: cell(0)}
	for i := 0; i < maxImportOptions; i++ {
		if opt := cell(1 + i); opt != "" {
			q.Options = append(q.Options, opt)
		}
	}
	if len(q.Options) < 2 {
		return QuestionPayload{}, fmt.Errorf("need at least 2 options, got %d", len(q.Options))
	}

	correct, err := parseCorrectCell(cell(1 + maxImportOptions))
	if err != nil {
		return QuestionPayload{}, err
	}
	if correct >= len(q.Options) {
		return QuestionPayload{}, fmt.Errorf("correct answer %d out of range for %d options", correct+1, len(q.Options))
	}
	q.CorrectAnswer = correct
	q.Explanation = cell(2 + maxImportOptions)
	return q, nil
}

// parseCorrectCell accepts an option letter (A-D) or a 1-based number and
// returns the zero-based answer index.
func parseCorrectCell(v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("correct answer is required")
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("correct answer number must be >= 1, got %d", n)
		}
		return n - 1, nil
	}
	upper := strings.ToUpper(v)
	if len(upper) == 1 && upper[0] >= 'A' && upper[0] <= 'Z' {
		return int(upper[0] - 'A'), nil
	}
	return 0, fmt.Errorf("correct answer %q is neither a letter nor a number", v)
}

// SubmitQuizWorkbook parses a spreadsheet and submits it as a pending quiz
// request.
func (w *Workflow) SubmitQuizWorkbook(ctx context.Context, r io.Reader, meta QuizMeta, submittedBy string) (*ContentRequest, error) {
	questions, err := ParseQuizWorkbook(r)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(QuizPayload{
		CourseID:     meta.CourseID,
		ChapterID:    meta.ChapterID,
		Title:        meta.Title,
		PassingScore: meta.PassingScore,
		XPReward:     meta.XPReward,
		Questions:    questions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal quiz payload: %w", err)
	}

	return w.Submit(ctx, SubmitInput{
		Type:        TypeQuiz,
		Payload:     payload,
		SubmittedBy: submittedBy,
	})
}
