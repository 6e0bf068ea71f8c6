package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// seedBundle mirrors one YAML content file: a course plus its chapters
// and quizzes.
type seedBundle struct {
	ID           string       `yaml:"id"`
	Title        string       `yaml:"title"`
	Description  string       `yaml:"description"`
	Published    bool         `yaml:"published"`
	LearningPath []PathItem   `yaml:"learning_path"`
	Chapters     []seedChapter `yaml:"chapters"`
	Quizzes      []seedQuiz    `yaml:"quizzes"`
}

type seedChapter struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Content   string `yaml:"content"`
	Order     int    `yaml:"order"`
	Published bool   `yaml:"published"`
	XPReward  int    `yaml:"xp_reward"`
}

type seedQuiz struct {
	ID           string     `yaml:"id"`
	ChapterID    string     `yaml:"chapter_id"`
	Title        string     `yaml:"title"`
	PassingScore int        `yaml:"passing_score"`
	XPReward     int        `yaml:"xp_reward"`
	Published    bool       `yaml:"published"`
	Questions    []Question `yaml:"questions"`
}

// LoadSeed walks rootDir for YAML course bundles and writes them into the
// store. Invalid files are skipped with a warning so one bad bundle cannot
// block startup.
func LoadSeed(ctx context.Context, store ContentStore, rootDir string) error {
	loaded := 0
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var bundle seedBundle
		if err := yaml.Unmarshal(data, &bundle); err != nil {
			slog.Warn("skipping invalid content bundle", "path", path, "error", err)
			return nil
		}
		if bundle.ID == "" {
			return nil // Not a course bundle
		}

		if err := seedBundleInto(ctx, store, bundle); err != nil {
			return fmt.Errorf("seeding %s: %w", path, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading content seed: %w", err)
	}

	slog.Info("content seed loaded", "courses", loaded)
	return nil
}

func seedBundleInto(ctx context.Context, store ContentStore, b seedBundle) error {
	course := Course{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		LearningPath: b.LearningPath,
		IsPublished:  b.Published,
	}
	if err := store.CreateCourse(ctx, course); err != nil {
		return fmt.Errorf("course %s: %w", b.ID, err)
	}

	for _, ch := range b.Chapters {
		_, err := store.CreateChapter(ctx, Chapter{
			ID:          ch.ID,
			CourseID:    b.ID,
			Title:       ch.Title,
			Content:     ch.Content,
			Order:       ch.Order,
			IsPublished: ch.Published,
			XPReward:    ch.XPReward,
		})
		if err != nil {
			return fmt.Errorf("chapter %s: %w", ch.ID, err)
		}
	}

	for _, q := range b.Quizzes {
		_, err := store.CreateQuiz(ctx, Quiz{
			ID:           q.ID,
			CourseID:     b.ID,
			ChapterID:    q.ChapterID,
			Title:        q.Title,
			Questions:    q.Questions,
			PassingScore: q.PassingScore,
			XPReward:     q.XPReward,
			IsPublished:  q.Published,
		})
		if err != nil {
			return fmt.Errorf("quiz %s: %w", q.ID, err)
		}
	}

	return nil
}
