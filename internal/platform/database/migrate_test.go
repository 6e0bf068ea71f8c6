package database_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pathlearn/pathlearn/internal/catalog"
	"github.com/pathlearn/pathlearn/internal/platform/database"
	"github.com/pathlearn/pathlearn/internal/progress"
	"github.com/pathlearn/pathlearn/internal/review"
	"github.com/pathlearn/pathlearn/internal/ticket"
	"github.com/pathlearn/pathlearn/internal/xp"
)

// startPostgres spins up a throwaway PostgreSQL container and returns a
// migrated connection.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := t.Context()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pathlearn_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	db, err := database.New(ctx, url, 5, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := database.Migrate(ctx, db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestPostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db := startPostgres(t)
	ctx := t.Context()

	t.Run("migrate is rerunnable", func(t *testing.T) {
		if err := database.Migrate(ctx, db.Pool); err != nil {
			t.Fatalf("second Migrate() error = %v", err)
		}
	})

	t.Run("xp deltas accumulate", func(t *testing.T) {
		store, err := xp.NewPostgresUserStore(db.Pool)
		if err != nil {
			t.Fatalf("NewPostgresUserStore() error = %v", err)
		}

		if _, err := store.AddXP(ctx, "u1", 100); err != nil {
			t.Fatalf("AddXP() error = %v", err)
		}
		total, err := store.AddXP(ctx, "u1", 50)
		if err != nil {
			t.Fatalf("AddXP() error = %v", err)
		}
		if total != 150 {
			t.Errorf("total = %d, want 150", total)
		}

		total, err = store.GetXP(ctx, "unknown")
		if err != nil || total != 0 {
			t.Errorf("GetXP(unknown) = %d, %v, want 0, nil", total, err)
		}
	})

	t.Run("catalog path append respects legacy courses", func(t *testing.T) {
		store, err := catalog.NewPostgresStore(db.Pool)
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}

		ordered := catalog.Course{ID: "ordered", Title: "Ordered", LearningPath: []catalog.PathItem{
			{Type: catalog.ItemChapter, ID: "ch1"},
		}}
		legacy := catalog.Course{ID: "legacy", Title: "Legacy"}
		for _, c := range []catalog.Course{ordered, legacy} {
			if err := store.CreateCourse(ctx, c); err != nil {
				t.Fatalf("CreateCourse(%s) error = %v", c.ID, err)
			}
		}

		item := catalog.PathItem{Type: catalog.ItemQuiz, ID: "q1"}
		if err := store.AppendPathItem(ctx, "ordered", item); err != nil {
			t.Fatalf("AppendPathItem(ordered) error = %v", err)
		}
		if err := store.AppendPathItem(ctx, "legacy", item); err != nil {
			t.Fatalf("AppendPathItem(legacy) error = %v", err)
		}

		c, err := store.GetCourse(ctx, "ordered")
		if err != nil {
			t.Fatalf("GetCourse() error = %v", err)
		}
		if len(c.LearningPath) != 2 {
			t.Errorf("ordered path = %d items, want 2", len(c.LearningPath))
		}

		c, err = store.GetCourse(ctx, "legacy")
		if err != nil {
			t.Fatalf("GetCourse() error = %v", err)
		}
		if len(c.LearningPath) != 0 {
			t.Errorf("legacy path = %d items, want 0", len(c.LearningPath))
		}

		created, err := store.CreateChapter(ctx, catalog.Chapter{ID: "ch1", CourseID: "ordered", Title: "One", Order: 1})
		if err != nil || !created {
			t.Fatalf("CreateChapter() = %v, %v, want created", created, err)
		}
		created, err = store.CreateChapter(ctx, catalog.Chapter{ID: "ch1", CourseID: "ordered", Title: "Dup", Order: 9})
		if err != nil {
			t.Fatalf("repeat CreateChapter() error = %v", err)
		}
		if created {
			t.Error("repeat CreateChapter() created = true, want false")
		}
	})

	t.Run("chapter completion is first-write-wins", func(t *testing.T) {
		store, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}

		first, err := store.AddCompletion(ctx, "u1", "c1", progress.ChapterCompletion{ChapterID: "ch1", ReadingPercent: 100})
		if err != nil {
			t.Fatalf("AddCompletion() error = %v", err)
		}
		if !first {
			t.Error("first AddCompletion() = false, want true")
		}

		first, err = store.AddCompletion(ctx, "u1", "c1", progress.ChapterCompletion{ChapterID: "ch1", ReadingPercent: 50})
		if err != nil {
			t.Fatalf("repeat AddCompletion() error = %v", err)
		}
		if first {
			t.Error("repeat AddCompletion() = true, want false")
		}

		p, err := store.AddTime(ctx, "u1", "c1", 30)
		if err != nil {
			t.Fatalf("AddTime() error = %v", err)
		}
		if p.TotalTimeSpent != 30 {
			t.Errorf("total time = %d, want 30", p.TotalTimeSpent)
		}
		if len(p.CompletedChapters) != 1 {
			t.Errorf("completed chapters = %d, want 1", len(p.CompletedChapters))
		}
	})

	t.Run("request transition is single-winner", func(t *testing.T) {
		store, err := review.NewPostgresStore(db.Pool)
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}

		req := review.ContentRequest{
			ID:          "req-1",
			Type:        review.TypeChapter,
			Payload:     json.RawMessage(`{"course_id":"c1","title":"T","content":"C"}`),
			SubmittedBy: "author",
			Status:      review.StatusPending,
		}
		if err := store.Create(ctx, req); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		won, err := store.Transition(ctx, "req-1", review.StatusApproved, "admin", "ok", time.Now())
		if err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if !won {
			t.Error("first Transition() = false, want true")
		}

		won, err = store.Transition(ctx, "req-1", review.StatusRejected, "admin2", "", time.Now())
		if err != nil {
			t.Fatalf("second Transition() error = %v", err)
		}
		if won {
			t.Error("second Transition() = true, want false")
		}

		got, err := store.Get(ctx, "req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != review.StatusApproved || got.ReviewedBy != "admin" {
			t.Errorf("request = %+v, want first reviewer's outcome kept", got)
		}
	})

	t.Run("ticket ids are sequential", func(t *testing.T) {
		store, err := ticket.NewPostgresStore(db.Pool)
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}

		tk1, err := store.Create(ctx, ticket.Ticket{Subject: "A", CreatedBy: "u1", Status: ticket.StatusOpen})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		tk2, err := store.Create(ctx, ticket.Ticket{Subject: "B", CreatedBy: "u1", Status: ticket.StatusOpen})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if tk1.ID != "TKT-000001" || tk2.ID != "TKT-000002" {
			t.Errorf("ids = %s, %s, want TKT-000001, TKT-000002", tk1.ID, tk2.ID)
		}

		got, err := store.AppendMessage(ctx, tk1.ID, ticket.Message{Sender: "admin", Content: "On it", IsStaff: true}, ticket.StatusOpen, ticket.StatusInProgress)
		if err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
		if got.Status != ticket.StatusInProgress || len(got.Messages) != 1 {
			t.Errorf("ticket = %+v, want in-progress with one message", got)
		}

		// A transition computed against a state the ticket has left
		// appends the message but leaves the status alone.
		got, err = store.AppendMessage(ctx, tk1.ID, ticket.Message{Sender: "u1", Content: "Thanks"}, ticket.StatusOpen, ticket.StatusInProgress)
		if err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
		if got.Status != ticket.StatusInProgress || len(got.Messages) != 2 {
			t.Errorf("ticket = %+v, want status unchanged with two messages", got)
		}
	})
}
