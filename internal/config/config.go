package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Vector backends accepted by VECTOR_BACKEND.
const (
	BackendQdrant = "qdrant"
	BackendMemory = "memory"
)

// Retrieval policies accepted by RETRIEVAL_POLICY.
const (
	PolicySemantic = "semantic"
	PolicyIntent   = "intent"
)

// Config holds all configuration for the application.
type Config struct {
	LLMProvider  string
	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string
	LLMTimeout   time.Duration
	LLMPreload   bool

	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingBatchSize int
	EmbeddingRPS       float64

	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string

	DBPath           string
	VectorBackend    string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantVectorSize int

	ChunkSize          int
	ChunkOverlap       int
	RetrievalPolicy    string
	RetrievalTopK      int
	GroundingThreshold float64

	MaxUploadBytes    int64
	MaxFilesPerUpload int
	ProcessingWorkers int

	APIPort     string
	CORSOrigins []string
	LogLevel    slog.Level
	LogFormat   string
}

// Load reads configuration from environment variables and returns a Config struct.
// A .env file in the working directory or up to five parents is loaded first;
// variables already present in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMProvider:          strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:           getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:         getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:            getEnv("LLM_API_KEY", "dummy-key"),
		LLMPreload:           getEnv("LLM_PRELOAD", "false") == "true",
		EmbeddingBaseURL:     getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName:   getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		DBPath:               getEnv("DB_PATH", "./data/coursetutor.db"),
		VectorBackend:        strings.ToLower(getEnv("VECTOR_BACKEND", BackendQdrant)),
		QdrantURL:            getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:         getEnv("QDRANT_API_KEY", ""),
		RetrievalPolicy:      strings.ToLower(getEnv("RETRIEVAL_POLICY", PolicySemantic)),
		APIPort:              getEnv("API_PORT", "9000"),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "text")),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "*")),
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI:
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, cfg.LLMProvider)
	}

	switch cfg.VectorBackend {
	case BackendQdrant, BackendMemory:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendQdrant, BackendMemory, cfg.VectorBackend)
	}

	switch cfg.RetrievalPolicy {
	case PolicySemantic, PolicyIntent:
	default:
		return nil, fmt.Errorf("RETRIEVAL_POLICY must be %q or %q, got %q", PolicySemantic, PolicyIntent, cfg.RetrievalPolicy)
	}

	// The vector size must match the embedding model output; a changed size
	// requires recreating the course collections. Gemini's text-embedding-004
	// produces 768 dimensions, so that provider gets a default.
	defaultVectorSize := ""
	if cfg.LLMProvider == ProviderGemini {
		defaultVectorSize = "768"
	}
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", defaultVectorSize)
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBatchSize, err = getPositiveInt("EMBEDDING_BATCH_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.EmbeddingRPS, err = getFloat("EMBEDDING_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getPositiveInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}
	if cfg.RetrievalTopK, err = getPositiveInt("RETRIEVAL_TOP_K", 10); err != nil {
		return nil, err
	}
	if cfg.GroundingThreshold, err = getFloat("GROUNDING_THRESHOLD", 1.2); err != nil {
		return nil, err
	}
	maxUpload, err := getPositiveInt("MAX_UPLOAD_BYTES", 15*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.MaxFilesPerUpload, err = getPositiveInt("MAX_FILES_PER_UPLOAD", 10); err != nil {
		return nil, err
	}
	if cfg.ProcessingWorkers, err = getPositiveInt("PROCESSING_WORKERS", 2); err != nil {
		return nil, err
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	v, err := getInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
