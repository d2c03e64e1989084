package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursetutor/internal/app"
	"coursetutor/internal/config"
	"coursetutor/internal/handlers"
	"coursetutor/internal/http"
	"coursetutor/internal/indexer"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API provides course-grounded tutoring: upload course material, then ask
// questions answered from it.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Course Tutor API
//   description: |
//     Retrieval-augmented tutoring over uploaded course documents.
//     Every request except the health check carries the caller's id in the X-User-ID header.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(app.NewLogger(cfg, os.Stdout))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Validate embedding client vector size (fail-fast)
	if err := a.ValidateEmbeddings(ctx); err != nil {
		_ = a.Close()
		log.Fatalf("%v", err)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	a.Pipeline.Start(workerCtx, cfg.ProcessingWorkers)
	go func() {
		if _, err := a.Pipeline.Resume(workerCtx); err != nil {
			slog.Error("Failed to resume unfinished files", "error", err)
		}
	}()

	checks := map[string]handlers.HealthChecker{
		"vector_store": a.Index,
		"database":     handlers.HealthCheckFunc(a.DB.PingContext),
	}
	router := http.NewRouter(&http.Deps{
		CourseService:   a.CourseService,
		DocumentService: a.DocumentService,
		ChatService:     a.ChatService,
		HealthChecks:    checks,
		UploadLimits:    indexer.Limits{MaxFileBytes: cfg.MaxUploadBytes, MaxFiles: cfg.MaxFilesPerUpload},
		CORSOrigins:     cfg.CORSOrigins,
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		slog.Debug("LLM configuration", "provider", cfg.LLMProvider, "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("API server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Interrupted files stay in processing state until the next start resumes them.
	stopWorkers()
	if err := a.Close(); err != nil {
		slog.Error("Failed to close resources", "error", err)
	}
	slog.Info("Shutdown complete")
}
