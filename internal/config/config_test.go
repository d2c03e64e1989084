package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"LLM_PROVIDER", "LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL", "LLM_TIMEOUT", "LLM_PRELOAD",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBEDDING_BATCH_SIZE", "EMBEDDING_RPS",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_EMBEDDING_MODEL",
	"DB_PATH", "VECTOR_BACKEND", "QDRANT_URL", "QDRANT_API_KEY", "QDRANT_VECTOR_SIZE",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "RETRIEVAL_POLICY", "RETRIEVAL_TOP_K", "GROUNDING_THRESHOLD",
	"MAX_UPLOAD_BYTES", "MAX_FILES_PER_UPLOAD", "PROCESSING_WORKERS",
	"API_PORT", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "768")
				t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "db.db"))
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.LLMProvider != ProviderOpenAI {
					t.Errorf("LLMProvider = %q, want %q", cfg.LLMProvider, ProviderOpenAI)
				}
				if cfg.LLMBaseURL != "http://localhost:8080" || cfg.EmbeddingBaseURL != "http://localhost:8081" {
					t.Errorf("unexpected base URLs: %q %q", cfg.LLMBaseURL, cfg.EmbeddingBaseURL)
				}
				if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
					t.Errorf("chunking = %d/%d, want 1000/200", cfg.ChunkSize, cfg.ChunkOverlap)
				}
				if cfg.EmbeddingBatchSize != 10 {
					t.Errorf("EmbeddingBatchSize = %d, want 10", cfg.EmbeddingBatchSize)
				}
				if cfg.RetrievalPolicy != PolicySemantic || cfg.RetrievalTopK != 10 {
					t.Errorf("retrieval = %q/%d", cfg.RetrievalPolicy, cfg.RetrievalTopK)
				}
				if cfg.GroundingThreshold != 1.2 {
					t.Errorf("GroundingThreshold = %v, want 1.2", cfg.GroundingThreshold)
				}
				if cfg.MaxUploadBytes != 15*1024*1024 || cfg.MaxFilesPerUpload != 10 {
					t.Errorf("upload limits = %d/%d", cfg.MaxUploadBytes, cfg.MaxFilesPerUpload)
				}
				if cfg.VectorBackend != BackendQdrant {
					t.Errorf("VectorBackend = %q", cfg.VectorBackend)
				}
				if cfg.LLMTimeout != 120*time.Second {
					t.Errorf("LLMTimeout = %v", cfg.LLMTimeout)
				}
				if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
					t.Errorf("logging = %v/%q", cfg.LogLevel, cfg.LogFormat)
				}
				if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
					t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
				}
				if cfg.APIPort != "9000" {
					t.Errorf("APIPort = %q", cfg.APIPort)
				}
			},
		},
		{
			name:     "missing QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {},
			wantErr:  true,
		},
		{
			name: "invalid QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "invalid")
			},
			wantErr: true,
		},
		{
			name: "negative QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "-1")
			},
			wantErr: true,
		},
		{
			name: "gemini provider defaults vector size",
			setupEnv: func(t *testing.T) {
				t.Setenv("LLM_PROVIDER", "gemini")
				t.Setenv("GEMINI_API_KEY", "key")
				t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "db.db"))
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.QdrantVectorSize != 768 {
					t.Errorf("QdrantVectorSize = %d, want 768", cfg.QdrantVectorSize)
				}
				if cfg.GeminiModel != "gemini-2.5-flash" || cfg.GeminiEmbeddingModel != "text-embedding-004" {
					t.Errorf("gemini models = %q/%q", cfg.GeminiModel, cfg.GeminiEmbeddingModel)
				}
			},
		},
		{
			name: "gemini provider requires key",
			setupEnv: func(t *testing.T) {
				t.Setenv("LLM_PROVIDER", "gemini")
			},
			wantErr: true,
		},
		{
			name: "unknown provider",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "768")
				t.Setenv("LLM_PROVIDER", "carrier-pigeon")
			},
			wantErr: true,
		},
		{
			name: "unknown retrieval policy",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "768")
				t.Setenv("RETRIEVAL_POLICY", "random")
			},
			wantErr: true,
		},
		{
			name: "overlap must be smaller than chunk size",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "768")
				t.Setenv("CHUNK_SIZE", "100")
				t.Setenv("CHUNK_OVERLAP", "100")
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "768")
				t.Setenv("LOG_LEVEL", "chatty")
			},
			wantErr: true,
		},
		{
			name: "custom values",
			setupEnv: func(t *testing.T) {
				t.Setenv("QDRANT_VECTOR_SIZE", "1024")
				t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "custom", "db.db"))
				t.Setenv("RETRIEVAL_POLICY", "Intent")
				t.Setenv("GROUNDING_THRESHOLD", "0.9")
				t.Setenv("VECTOR_BACKEND", "memory")
				t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
				t.Setenv("LOG_LEVEL", "debug")
				t.Setenv("LOG_FORMAT", "json")
				t.Setenv("EMBEDDING_RPS", "2.5")
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.QdrantVectorSize != 1024 {
					t.Errorf("QdrantVectorSize = %d", cfg.QdrantVectorSize)
				}
				if filepath.Base(cfg.DBPath) != "db.db" {
					t.Errorf("DBPath = %q", cfg.DBPath)
				}
				if cfg.RetrievalPolicy != PolicyIntent {
					t.Errorf("RetrievalPolicy = %q", cfg.RetrievalPolicy)
				}
				if cfg.GroundingThreshold != 0.9 {
					t.Errorf("GroundingThreshold = %v", cfg.GroundingThreshold)
				}
				if cfg.VectorBackend != BackendMemory {
					t.Errorf("VectorBackend = %q", cfg.VectorBackend)
				}
				if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
					t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
				}
				if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
					t.Errorf("logging = %v/%q", cfg.LogLevel, cfg.LogFormat)
				}
				if cfg.EmbeddingRPS != 2.5 {
					t.Errorf("EmbeddingRPS = %v", cfg.EmbeddingRPS)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run from a temp directory so no stray .env file is loaded.
			t.Chdir(t.TempDir())
			clearEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil {
				tt.checkConfig(t, cfg)
			}
		})
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)

	dbPath := filepath.Join(t.TempDir(), "test", "db.db")
	t.Setenv("QDRANT_VECTOR_SIZE", "768")
	t.Setenv("DB_PATH", dbPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Errorf("Load() should create data directory: %v", err)
	}
	if cfg.DBPath != dbPath {
		t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, dbPath)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         string
	}{
		{name: "env var set", value: "set-value", defaultValue: "default", want: "set-value"},
		{name: "empty env var uses default", value: "", defaultValue: "default", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_VAR", tt.value)
			if got := getEnv("TEST_ENV_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitList() = %v, want [a b]", got)
	}
}
