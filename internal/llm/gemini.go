package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GeminiClient generates text and embeddings through the Gemini API.
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	expectedSize   int
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey         string
	Model          string // e.g. gemini-2.5-flash
	EmbeddingModel string // e.g. text-embedding-004
	ExpectedSize   int    // Embedding dimension to validate against; zero skips validation
	Timeout        time.Duration
	BaseURL        string // Optional override, used by tests
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = newHTTPClient(cfg.Timeout)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		expectedSize:   cfg.ExpectedSize,
	}, nil
}

func (g *GeminiClient) config(system string) *genai.GenerateContentConfig {
	if system == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}

// Generate returns the model's answer to prompt.
func (g *GeminiClient) Generate(ctx context.Context, prompt, system string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config(system))
	if err != nil {
		return "", geminiError(err, ErrGeneration)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	return text, nil
}

// GenerateStream streams the model's answer to prompt through callback.
// An error returned by callback stops the stream and is returned wrapped.
func (g *GeminiClient) GenerateStream(ctx context.Context, prompt, system string, callback func(chunk string) error) error {
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.config(system)) {
		if err != nil {
			return geminiError(err, ErrGeneration)
		}
		if chunk := resp.Text(); chunk != "" {
			if err := callback(chunk); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
	}
	return nil
}

// EmbedTexts embeds each text with the configured embedding model.
func (g *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, nil)
	if err != nil {
		return nil, geminiError(err, ErrEmbeddingRequest)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedding %d missing", i)
		}
		if g.expectedSize > 0 && len(e.Values) != g.expectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(e.Values), g.expectedSize)
		}
		out[i] = e.Values
	}
	return out, nil
}

// geminiError maps HTTP 429 responses to *RateLimitError and wraps everything else with kind.
func geminiError(err error, kind error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryDelay(apiErr), Err: err}
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// retryDelay reads the RetryInfo detail Gemini attaches to quota errors, e.g. {"retryDelay": "37s"}.
func retryDelay(apiErr genai.APIError) time.Duration {
	for _, detail := range apiErr.Details {
		if raw, ok := detail["retryDelay"].(string); ok {
			if d, err := time.ParseDuration(raw); err == nil {
				return d
			}
		}
	}
	return DefaultRetryAfter
}
