package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks coursetutor/internal/vectorstore VectorStore

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexUnavailable wraps every failure reported by a vector index backend.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Distance is on a squared-L2 scale for unit vectors: 0 is identical, 4 is opposite.
type SearchResult struct {
	PointID  string
	Distance float64
	Meta     map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection if missing, or validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// DeleteCollection removes the collection. A missing collection is not an error.
	DeleteCollection(ctx context.Context, collection string) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k nearest points in ascending distance order.
	// A nil filter matches every point.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Health checks that the backend is reachable.
	Health(ctx context.Context) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIndexUnavailable, err)
}

// cosineToDistance maps cosine similarity to the squared Euclidean distance
// between unit vectors.
func cosineToDistance(cos float64) float64 {
	d := 2 * (1 - cos)
	if d < 0 {
		return 0
	}
	return d
}
