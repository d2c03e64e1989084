// Package app assembles the tutoring backend from configuration.
// Both the API server and the tutor CLI build on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"coursetutor/internal/chunking"
	"coursetutor/internal/config"
	"coursetutor/internal/embedding"
	"coursetutor/internal/indexer"
	"coursetutor/internal/llm"
	"coursetutor/internal/rag"
	"coursetutor/internal/service"
	"coursetutor/internal/storage"
	"coursetutor/internal/vectorstore"
)

const qdrantHealthTimeout = 30 * time.Second

// App holds the wired components.
type App struct {
	Config *config.Config

	DB       *sql.DB
	Courses  *storage.CourseRepo
	Units    *storage.UnitRepo
	Files    *storage.FileRepo
	Chunks   *storage.ChunkRepo
	Sessions *storage.SessionRepo
	Messages *storage.MessageRepo

	Embedder  *embedding.Gateway
	Index     *vectorstore.CourseIndex
	Pipeline  *indexer.Pipeline
	Retriever *rag.Retriever
	Composer  *rag.Composer

	CourseService   service.CourseService
	DocumentService service.DocumentService
	ChatService     service.ChatService

	closers []io.Closer
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// New opens storage, connects to the model and vector backends, and wires the services.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db)

	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	a.Courses = storage.NewCourseRepo(db)
	a.Units = storage.NewUnitRepo(db)
	a.Files = storage.NewFileRepo(db)
	a.Chunks = storage.NewChunkRepo(db)
	a.Sessions = storage.NewSessionRepo(db)
	a.Messages = storage.NewMessageRepo(db)

	store, err := a.vectorStore(ctx)
	if err != nil {
		return nil, err
	}

	gen, embedder, err := a.models(ctx)
	if err != nil {
		return nil, err
	}

	a.Embedder = embedding.NewGateway(embedder,
		embedding.WithBatchSize(cfg.EmbeddingBatchSize),
		embedding.WithRateLimit(cfg.EmbeddingRPS),
	)
	a.Index = vectorstore.NewCourseIndex(store, a.Embedder, cfg.QdrantVectorSize)

	a.Pipeline = indexer.NewPipeline(
		a.Courses,
		a.Units,
		a.Files,
		a.Chunks,
		a.Index,
		chunking.New(cfg.ChunkSize, cfg.ChunkOverlap),
		indexer.Limits{MaxFileBytes: cfg.MaxUploadBytes, MaxFiles: cfg.MaxFilesPerUpload},
	)

	var classifier *rag.IntentClassifier
	if cfg.RetrievalPolicy == config.PolicyIntent {
		classifier = rag.NewIntentClassifier(gen)
	}
	a.Retriever = rag.NewRetriever(a.Index, classifier, rag.Policy(cfg.RetrievalPolicy), cfg.RetrievalTopK)
	a.Composer = rag.NewComposer(gen, cfg.GroundingThreshold)
	slog.Info("Retrieval configured",
		"policy", cfg.RetrievalPolicy,
		"top_k", cfg.RetrievalTopK,
		"grounding_threshold", a.Composer.Threshold(),
	)

	a.CourseService = service.NewCourseService(a.Courses, a.Units, a.Index)
	a.DocumentService = service.NewDocumentService(a.Courses, a.Files, a.Chunks, a.Index, a.Pipeline)
	a.ChatService = service.NewChatService(a.Courses, a.Units, a.Sessions, a.Messages, a.Retriever, a.Composer)

	return a, nil
}

func (a *App) vectorStore(ctx context.Context) (vectorstore.VectorStore, error) {
	cfg := a.Config
	if cfg.VectorBackend == config.BackendMemory {
		slog.Warn("Using in-memory vector store; indexed chunks are lost on exit")
		return vectorstore.NewMemoryStore(), nil
	}

	store, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantURL, vectorstore.QdrantOptions{
		APIKey:        cfg.QdrantAPIKey,
		HealthTimeout: qdrantHealthTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	a.closers = append(a.closers, store)
	slog.Info("Qdrant connected", "url", cfg.QdrantURL, "vector_size", cfg.QdrantVectorSize)
	return store, nil
}

func (a *App) models(ctx context.Context) (rag.Generator, embedding.Embedder, error) {
	cfg := a.Config
	if cfg.LLMProvider == config.ProviderGemini {
		client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
			ExpectedSize:   cfg.QdrantVectorSize,
			Timeout:        cfg.LLMTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Gemini client initialized", "model", cfg.GeminiModel, "embedding_model", cfg.GeminiEmbeddingModel)
		return client, client, nil
	}

	if cfg.LLMPreload {
		preloadModels(ctx, cfg)
	}
	gen := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTimeout)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize, cfg.LLMTimeout)
	slog.Info("LLM client initialized", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	return gen, embedder, nil
}

// preloadModels asks the llama.cpp servers to load the chat and embedding models.
// Failures are logged; the first request will load the model instead.
func preloadModels(ctx context.Context, cfg *config.Config) {
	targets := []struct{ baseURL, model string }{
		{cfg.LLMBaseURL, cfg.LLMModelName},
		{cfg.EmbeddingBaseURL, cfg.EmbeddingModelName},
	}
	for _, t := range targets {
		if err := llm.NewModelLoader(t.baseURL, cfg.LLMTimeout).Ensure(ctx, t.model); err != nil {
			slog.Warn("Model preload failed", "base_url", t.baseURL, "model", t.model, "error", err)
			continue
		}
		slog.Info("Model loaded", "model", t.model)
	}
}

// ValidateEmbeddings embeds a probe text and checks the vector size against the configuration.
func (a *App) ValidateEmbeddings(ctx context.Context) error {
	vec, err := a.Embedder.Embed(ctx, "test")
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vec) != a.Config.QdrantVectorSize {
		return fmt.Errorf("embedding vector size mismatch: expected %d, got %d", a.Config.QdrantVectorSize, len(vec))
	}
	slog.Info("Embedding client validated", "vector_size", len(vec))
	return nil
}

// Close waits for the processing workers to exit and releases connections.
// The context passed to Pipeline.Start must be canceled first.
func (a *App) Close() error {
	if a.Pipeline != nil {
		a.Pipeline.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
