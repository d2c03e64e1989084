package vectorstore

import (
	"context"
	"fmt"

	"coursetutor/internal/chunking"
	"coursetutor/internal/contextutil"
)

// Payload keys written alongside chunk metadata.
const (
	payloadContent = "content"
	payloadChunkID = "chunk_id"
)

// Embedder produces query and document embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CourseIndex manages one collection per course on top of a VectorStore.
type CourseIndex struct {
	store      VectorStore
	embedder   Embedder
	vectorSize int
}

// NewCourseIndex creates a course index.
func NewCourseIndex(store VectorStore, embedder Embedder, vectorSize int) *CourseIndex {
	return &CourseIndex{
		store:      store,
		embedder:   embedder,
		vectorSize: vectorSize,
	}
}

// CollectionName returns the collection holding a course's chunks.
func CollectionName(courseID int64) string {
	return fmt.Sprintf("course_%d", courseID)
}

// EnsureCollection gets or creates the course collection and returns its name.
func (ci *CourseIndex) EnsureCollection(ctx context.Context, courseID int64) (string, error) {
	name := CollectionName(courseID)
	if err := ci.store.EnsureCollection(ctx, name, ci.vectorSize); err != nil {
		return "", fmt.Errorf("failed to ensure collection %s: %w", name, err)
	}
	return name, nil
}

// Insert embeds the chunks and upserts them under the given ids.
// Re-inserting an id overwrites the previous point.
func (ci *CourseIndex) Insert(ctx context.Context, courseID int64, chunks []chunking.Chunk, ids []string) error {
	if len(chunks) != len(ids) {
		return fmt.Errorf("chunks and ids length mismatch: %d != %d", len(chunks), len(ids))
	}
	if len(chunks) == 0 {
		return nil
	}

	name, err := ci.EnsureCollection(ctx, courseID)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := ci.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	points := make([]Point, len(chunks))
	for i, c := range chunks {
		meta := c.Metadata.Fields()
		meta[payloadContent] = c.Content
		meta[payloadChunkID] = ids[i]
		points[i] = Point{ID: ids[i], Vec: vecs[i], Meta: meta}
	}

	if err := ci.store.Upsert(ctx, name, points); err != nil {
		return fmt.Errorf("failed to insert chunks into %s: %w", name, err)
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "inserted chunks", "collection", name, "count", len(points))
	return nil
}

// Query returns up to topK chunks nearest to text, closest first. A course
// without a collection yields no results.
func (ci *CourseIndex) Query(ctx context.Context, courseID int64, text string, topK int, filter Filter) ([]chunking.RetrievedChunk, error) {
	name := CollectionName(courseID)

	exists, err := ci.store.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	vec, err := ci.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := ci.store.Search(ctx, name, vec, topK, filter)
	if err != nil {
		return nil, err
	}

	out := make([]chunking.RetrievedChunk, 0, len(results))
	for _, r := range results {
		content, _ := r.Meta[payloadContent].(string)
		id, _ := r.Meta[payloadChunkID].(string)
		if id == "" {
			id = r.PointID
		}
		out = append(out, chunking.RetrievedChunk{
			Chunk: chunking.Chunk{
				Content:  content,
				Metadata: chunking.MetadataFromFields(r.Meta),
			},
			ID:       id,
			Distance: r.Distance,
		})
	}
	return out, nil
}

// DeleteCollection drops the course collection. A missing collection is not an error.
func (ci *CourseIndex) DeleteCollection(ctx context.Context, courseID int64) error {
	name := CollectionName(courseID)
	if err := ci.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// DeletePoints removes chunks by id from the course collection.
func (ci *CourseIndex) DeletePoints(ctx context.Context, courseID int64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	name := CollectionName(courseID)
	exists, err := ci.store.CollectionExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	return ci.store.Delete(ctx, name, ids)
}

// Count returns the number of chunks stored for a course.
func (ci *CourseIndex) Count(ctx context.Context, courseID int64) (int, error) {
	name := CollectionName(courseID)
	exists, err := ci.store.CollectionExists(ctx, name)
	if err != nil || !exists {
		return 0, err
	}
	return ci.store.Count(ctx, name)
}

// Health reports whether the backing store is reachable.
func (ci *CourseIndex) Health(ctx context.Context) error {
	return ci.store.Health(ctx)
}
