// Package internal provides the main application initialization and
// runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/category"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/notesdir"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/reconcile"
	"github.com/starford/laguz/internal/search"
	"github.com/starford/laguz/internal/sse"
	"github.com/starford/laguz/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notes_path", cfg.Notes.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Notes directory provider (creates the directory when missing).
	dir, err := notesdir.New(cfg.Notes.Path)
	if err != nil {
		return fmt.Errorf("init notes dir: %w", err)
	}

	// Relational store + full-text index.
	st, err := store.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	engine := search.New(st, dir, logger)
	projector := category.New(st)
	rec := reconcile.New(st, dir, logger)

	// SSE broker feeding the UI shell.
	broker := sse.NewBroker()
	defer broker.Close()

	svc := noteservice.New(st, dir, engine, projector, rec, broker.PublishNoteEvent)

	// Startup reconciliation so the store reflects the directory before
	// the first request.
	if res := rec.Run(reconcile.Options{SkipMissingFilePass: cfg.Reconcile.SkipMissingFilePass}); !res.Empty() {
		logger.Info("startup reconciliation",
			slog.Int("created", len(res.CreatedNoteIDs)),
			slog.Int("renamed", len(res.UpdatedPaths)),
			slog.Int("trashed", len(res.MarkedDeletedNoteIDs)))
	}

	if app.mcpMode {
		logger.Info("Serving MCP on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoint (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watcher-driven and periodic reconciliation.
	g.Go(func() error {
		return reconcile.Watch(gCtx, rec, dir.Root(), cfg.Reconcile.Interval, logger, broker.PublishReconcile)
	})

	// HTTP server for the UI/IPC surface.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shutdown on signal or context cancellation.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped")
	return nil
}
