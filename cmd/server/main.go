package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pathlearn/pathlearn/internal/catalog"
	"github.com/pathlearn/pathlearn/internal/platform/cache"
	"github.com/pathlearn/pathlearn/internal/platform/config"
	"github.com/pathlearn/pathlearn/internal/platform/database"
	"github.com/pathlearn/pathlearn/internal/progress"
	"github.com/pathlearn/pathlearn/internal/quiz"
	"github.com/pathlearn/pathlearn/internal/review"
	"github.com/pathlearn/pathlearn/internal/ticket"
	"github.com/pathlearn/pathlearn/internal/xp"
)

// app holds the wired core services and the dependencies the readiness
// probe checks.
type app struct {
	db    *database.DB
	cache *cache.Cache

	resolver *catalog.Resolver
	tracker  *progress.Tracker
	ledger   *xp.Ledger
	quizzes  *quiz.Service
	reviews  *review.Workflow
	tickets  *ticket.Workflow
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(a),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// buildApp wires stores and services. With no database URL configured the
// server runs entirely on in-memory stores, optionally seeded from YAML.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	var (
		content  catalog.ContentStore
		prog     progress.Store
		users    xp.UserStore
		requests review.Store
		tickets  ticket.Store
	)

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db = db

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db.Pool); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		if content, err = catalog.NewPostgresStore(db.Pool); err != nil {
			return nil, err
		}
		if prog, err = progress.NewPostgresStore(db.Pool); err != nil {
			return nil, err
		}
		if users, err = xp.NewPostgresUserStore(db.Pool); err != nil {
			return nil, err
		}
		if requests, err = review.NewPostgresStore(db.Pool); err != nil {
			return nil, err
		}
		if tickets, err = ticket.NewPostgresStore(db.Pool); err != nil {
			return nil, err
		}
	} else {
		slog.Warn("no database configured, using in-memory stores")
		content = catalog.NewMemoryStore()
		prog = progress.NewMemoryStore()
		users = xp.NewMemoryUserStore()
		requests = review.NewMemoryStore()
		tickets = ticket.NewMemoryStore()
	}

	if cfg.Content.SeedPath != "" {
		if err := catalog.LoadSeed(ctx, content, cfg.Content.SeedPath); err != nil {
			return nil, err
		}
	}

	var board *xp.Leaderboard
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.cache = c
		board = xp.NewLeaderboard(c)
	}

	a.resolver = catalog.NewResolver(content)
	a.ledger = xp.NewLedger(users, board)
	a.tracker = progress.NewTracker(prog, content, a.resolver, a.ledger)
	a.quizzes = quiz.NewService(content, a.tracker, a.ledger)
	a.reviews = review.NewWorkflow(requests, content, cfg.Review.DefaultRejectNote)
	a.tickets = ticket.NewWorkflow(tickets)

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newMux creates the HTTP router with health check endpoints.
func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	if a.db != nil {
		if err := a.db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
	}
	if a.cache != nil {
		if err := a.cache.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"cache unavailable"}`))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
