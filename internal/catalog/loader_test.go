package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pathlearn/pathlearn/internal/catalog"
)

const seedYAML = `id: go-basics
title: Go Basics
description: An introduction to Go
published: true
learning_path:
  - type: chapter
    id: ch-intro
  - type: quiz
    id: quiz-intro
chapters:
  - id: ch-intro
    title: Introduction
    content: Welcome to Go.
    order: 1
    published: true
    xp_reward: 50
quizzes:
  - id: quiz-intro
    title: Intro Quiz
    passing_score: 70
    xp_reward: 100
    published: true
    questions:
      - id: q1
        text: What does go fmt do?
        options: ["Formats code", "Runs tests"]
        correct_answer: 0
`

func writeSeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, "go-basics.yaml", seedYAML)
	writeSeedFile(t, dir, "notes.txt", "not yaml, must be ignored")

	store := catalog.NewMemoryStore()
	if err := catalog.LoadSeed(t.Context(), store, dir); err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	course, err := store.GetCourse(t.Context(), "go-basics")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if course.Title != "Go Basics" || !course.IsPublished {
		t.Errorf("course = %+v, want title and published from bundle", course)
	}
	if len(course.LearningPath) != 2 {
		t.Errorf("learning path length = %d, want 2", len(course.LearningPath))
	}

	ch, err := store.GetChapter(t.Context(), "ch-intro")
	if err != nil {
		t.Fatalf("GetChapter() error = %v", err)
	}
	if ch.CourseID != "go-basics" || ch.XPReward != 50 {
		t.Errorf("chapter = %+v, want course_id and xp_reward from bundle", ch)
	}

	q, err := store.GetQuiz(t.Context(), "quiz-intro")
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if q.PassingScore != 70 || len(q.Questions) != 1 {
		t.Errorf("quiz = %+v, want passing_score=70 and one question", q)
	}
	if q.Questions[0].CorrectAnswer != 0 {
		t.Errorf("question correct_answer = %d, want 0", q.Questions[0].CorrectAnswer)
	}
}

func TestLoadSeed_SkipsInvalidBundle(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, "broken.yaml", "id: [not: valid: yaml")
	writeSeedFile(t, dir, "good.yaml", seedYAML)

	store := catalog.NewMemoryStore()
	if err := catalog.LoadSeed(t.Context(), store, dir); err != nil {
		t.Fatalf("LoadSeed() error = %v (invalid bundles must be skipped, not fatal)", err)
	}

	if _, err := store.GetCourse(t.Context(), "go-basics"); err != nil {
		t.Errorf("valid bundle not loaded: %v", err)
	}
}
