package progress

import "time"

// ChapterCompletion records one chapter finished by a user, at most once
// per chapter within a course.
type ChapterCompletion struct {
	ChapterID      string    `json:"chapter_id"`
	ReadingPercent int       `json:"reading_percent"`
	CompletedAt    time.Time `json:"completed_at"`
}

// QuizResult is one graded attempt. Attempts are history: repeat attempts
// for the same quiz are all retained.
type QuizResult struct {
	QuizID      string    `json:"quiz_id"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	XPEarned    int       `json:"xp_earned"`
	CompletedAt time.Time `json:"completed_at"`
}

// Progress is the single record for a (user, course) pair. It is created
// lazily on the first completion or time-update event.
type Progress struct {
	UserID            string              `json:"user_id"`
	CourseID          string              `json:"course_id"`
	CompletedChapters []ChapterCompletion `json:"completed_chapters"`
	QuizResults       []QuizResult        `json:"quiz_results"`
	TotalTimeSpent    int                 `json:"total_time_spent"` // minutes
	LastAccessedAt    time.Time           `json:"last_accessed_at"`
	CreatedAt         time.Time           `json:"created_at"`
}

// PassedQuizCount returns the number of distinct quizzes with at least one
// passed attempt. A quiz passed twice counts once; failed attempts never
// subtract.
func (p *Progress) PassedQuizCount() int {
	passed := make(map[string]struct{})
	for _, r := range p.QuizResults {
		if r.Passed {
			passed[r.QuizID] = struct{}{}
		}
	}
	return len(passed)
}

// HasCompletedChapter reports whether chapterID is in the completed set.
func (p *Progress) HasCompletedChapter(chapterID string) bool {
	for _, c := range p.CompletedChapters {
		if c.ChapterID == chapterID {
			return true
		}
	}
	return false
}
