package catalog

import "time"

// ItemType discriminates the members of a course's learning path.
type ItemType string

const (
	ItemChapter ItemType = "chapter"
	ItemQuiz    ItemType = "quiz"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemChapter || t == ItemQuiz
}

// PathItem is a tagged reference to a content item inside a course's
// learning path. Order within the path is significant. Duplicate references
// are permitted; each is tracked by identity, not position.
type PathItem struct {
	Type ItemType `json:"type" yaml:"type"`
	ID   string   `json:"id" yaml:"id"`
}

// Course groups content items under an ordered learning path. An empty
// LearningPath means the course predates explicit ordering and falls back
// to legacy counting (see Resolver).
type Course struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	LearningPath []PathItem `json:"learning_path"`
	IsPublished  bool       `json:"is_published"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Chapter is a readable content item worth XP on first completion.
type Chapter struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Content     string    `json:"content,omitempty"`
	Order       int       `json:"order"`
	IsPublished bool      `json:"is_published"`
	XPReward    int       `json:"xp_reward"`
	CreatedAt   time.Time `json:"created_at"`
}

// Question is a single multiple-choice question. CorrectAnswer and
// Explanation must never be served to a taker before grading.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation"`
}

// Quiz is a gradeable content item. It may belong to a course, be attached
// to a chapter, or stand alone (both references empty).
type Quiz struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id,omitempty"`
	ChapterID    string     `json:"chapter_id,omitempty"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug,omitempty"`
	Questions    []Question `json:"questions"`
	PassingScore int        `json:"passing_score"`
	XPReward     int        `json:"xp_reward"`
	IsPublished  bool       `json:"is_published"`
	CreatedAt    time.Time  `json:"created_at"`
}
