// Package main provides the tutor CLI for managing course material from a terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"coursetutor/internal/app"
	"coursetutor/internal/config"
)

// openApp builds the application from the environment. Tests replace it.
var openApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(app.NewLogger(cfg, os.Stderr))
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tutor",
		Short: "Course tutor command line",
		Long: `Ingest course material, check indexing progress and ask questions
against a course without running the API server.

Configuration is read from the same environment variables as the API server:
  LLM_PROVIDER, LLM_BASE_URL, EMBEDDING_BASE_URL  model endpoints
  VECTOR_BACKEND, QDRANT_URL, QDRANT_VECTOR_SIZE  vector store
  DB_PATH                                          SQLite database`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newCourseCmd(),
		newIngestCmd(),
		newStatusCmd(),
		newAskCmd(),
	)
	return rootCmd
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withApp opens the application, runs fn and closes it again.
func withApp(ctx context.Context, fn func(a *app.App) error) (err error) {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}

func requireCourse(courseID int64) error {
	if courseID <= 0 {
		return errors.New("--course is required")
	}
	return nil
}
