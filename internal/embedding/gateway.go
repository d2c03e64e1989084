// Package embedding batches calls to an external embedding model.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"coursetutor/internal/contextutil"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks coursetutor/internal/embedding Embedder

// DefaultBatchSize bounds the number of concurrent embedding requests.
const DefaultBatchSize = 10

// ErrEmbeddingFailed is returned when any embedding call in a batch fails.
var ErrEmbeddingFailed = errors.New("embedding failed")

// Embedder is an external embedding model. Implementations return one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway wraps an Embedder, issuing one request per text and running the
// requests of a batch concurrently.
type Gateway struct {
	embedder  Embedder
	batchSize int
	limiter   *rate.Limiter
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithBatchSize sets the number of texts embedded concurrently.
func WithBatchSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithRateLimit throttles outbound requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(g *Gateway) {
		if rps > 0 {
			burst := max(1, int(rps))
			g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewGateway creates a new embedding gateway.
func NewGateway(embedder Embedder, opts ...Option) *Gateway {
	g := &Gateway{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Embed returns the embedding of a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.embedOne(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	return vec, nil
}

// EmbedBatch returns one embedding per text, in input order. Batches run one
// after another; a failure in any request aborts its batch and is returned.
// Nothing is retried.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)
	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		eg, egCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			eg.Go(func() error {
				vec, err := g.embedOne(egCtx, texts[i])
				if err != nil {
					return fmt.Errorf("text %d: %w", i, err)
				}
				out[i] = vec
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			logger.ErrorContext(ctx, "embedding batch failed", "start", start, "end", end, "error", err)
			return nil, fmt.Errorf("%w: batch %d-%d: %w", ErrEmbeddingFailed, start, end, err)
		}
		logger.DebugContext(ctx, "embedded batch", "start", start, "end", end)
	}

	return out, nil
}

func (g *Gateway) embedOne(ctx context.Context, text string) ([]float32, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vecs, err := g.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
