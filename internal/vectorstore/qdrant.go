package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"coursetutor/internal/contextutil"
)

// pointNamespace seeds the UUIDv5 ids derived from non-UUID point ids.
var pointNamespace = uuid.MustParse("6f1c2a4e-8d1b-4f7e-9a5c-3b2d7e0c9f11")

// indexedFields get integer payload indexes on every new collection.
var indexedFields = []string{"unit_id", "hierarchy_level", "file_id"}

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// QdrantOptions holds optional connection settings.
type QdrantOptions struct {
	APIKey string
	// HealthTimeout bounds the startup health check retries. Zero skips the check.
	HealthTimeout time.Duration
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port is derived as the HTTP port + 1; an https URL enables TLS.
func NewQdrantStore(ctx context.Context, urlStr string, opts QdrantOptions) (*QdrantStore, error) {
	host, port, useTLS, err := parseQdrantURL(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: opts.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	store := &QdrantStore{client: client}

	if opts.HealthTimeout > 0 {
		if err := store.healthCheckWithRetry(ctx, opts.HealthTimeout); err != nil {
			_ = client.Close()
			return nil, unavailable("qdrant health check", err)
		}
	}

	return store, nil
}

func parseQdrantURL(urlStr string) (host string, port int, useTLS bool, err error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host = parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port = 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	return host, port, parsedURL.Scheme == "https", nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// healthCheckWithRetry retries Health with exponential backoff until maxElapsed.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context, maxElapsed time.Duration) error {
	logger := contextutil.LoggerFromContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "qdrant not ready, retrying", "error", err, "wait", wait)
	})
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return unavailable("health check failed", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response: %w", ErrIndexUnavailable)
	}
	return nil
}

// Upsert inserts or updates points in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		qdrantPoint := &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(point.ID)),
			Vectors: qdrant.NewVectors(point.Vec...),
		}

		if len(point.Meta) > 0 {
			payload, err := qdrant.TryValueMap(point.Meta)
			if err != nil {
				return fmt.Errorf("failed to convert payload for point %s: %w", point.ID, err)
			}
			qdrantPoint.Payload = payload
		}

		qdrantPoints = append(qdrantPoints, qdrantPoint)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return unavailable("failed to upsert points", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search performs a similarity search with an optional filter.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	qdrantFilter, err := toQdrantFilter(filter)
	if err != nil {
		return nil, err
	}

	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         qdrantFilter,
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, unavailable("failed to search points", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, result := range scoredPoints {
		pointID := ""
		if result.Id != nil {
			pointID = result.Id.GetUuid()
		}

		meta := make(map[string]any)
		if result.Payload != nil {
			meta = convertPayloadToMap(result.Payload)
		}

		results = append(results, SearchResult{
			PointID:  pointID,
			Distance: cosineToDistance(float64(result.Score)),
			Meta:     meta,
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "filter", filter, "results", len(results))
	return results, nil
}

// Delete removes points by their IDs.
func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewIDUUID(pointUUID(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrantIDs...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", collection, "count", len(ids), "error", err)
		return unavailable("failed to delete points", err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", collection, "count", len(ids))
	return nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, unavailable("failed to count points", err)
	}
	return int(n), nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, unavailable("failed to check collection existence", err)
	}
	return exists, nil
}

// DeleteCollection removes a collection if it exists.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return unavailable("failed to delete collection", err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "collection deleted", "collection", collection)
	return nil
}

// EnsureCollection ensures a collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
// If it doesn't exist, creates it with cosine distance and payload indexes.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			// A concurrent creator may have won the race.
			if exists, checkErr := s.CollectionExists(ctx, collection); checkErr == nil && exists {
				return nil
			}
			return unavailable("failed to create collection", err)
		}
		for _, field := range indexedFields {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: collection,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
			})
			if err != nil {
				return unavailable(fmt.Sprintf("failed to create index for field %s", field), err)
			}
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return unavailable("failed to get collection info", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	params := config.Params.GetVectorsConfig().GetParams()
	if params == nil || params.Size == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.DebugContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
	return nil
}

// pointUUID returns id unchanged when it is already a UUID, otherwise a UUIDv5 derived from it.
func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// toQdrantFilter translates a Filter into a Qdrant filter. Conjunctions
// become Must lists; any other condition is the filter's only Must entry.
func toQdrantFilter(f Filter) (*qdrant.Filter, error) {
	if f == nil {
		return nil, nil
	}
	if and, ok := f.(And); ok {
		must := make([]*qdrant.Condition, 0, len(and))
		for _, c := range and {
			cond, err := toQdrantCondition(c)
			if err != nil {
				return nil, err
			}
			must = append(must, cond)
		}
		return &qdrant.Filter{Must: must}, nil
	}
	cond, err := toQdrantCondition(f)
	if err != nil {
		return nil, err
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{cond}}, nil
}

func toQdrantCondition(f Filter) (*qdrant.Condition, error) {
	switch c := f.(type) {
	case Eq:
		if n, ok := toInt64(c.Value); ok {
			return qdrant.NewMatchInt(c.Field, n), nil
		}
		switch v := c.Value.(type) {
		case string:
			return qdrant.NewMatchKeyword(c.Field, v), nil
		case bool:
			return qdrant.NewMatchBool(c.Field, v), nil
		}
		return nil, fmt.Errorf("unsupported filter value %T for field %s", c.Value, c.Field)
	case In:
		ints := make([]int64, 0, len(c.Values))
		strs := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			if n, ok := toInt64(v); ok {
				ints = append(ints, n)
			} else if s, ok := v.(string); ok {
				strs = append(strs, s)
			} else {
				return nil, fmt.Errorf("unsupported filter value %T for field %s", v, c.Field)
			}
		}
		switch {
		case len(strs) == 0:
			return qdrant.NewMatchInts(c.Field, ints...), nil
		case len(ints) == 0:
			return qdrant.NewMatchKeywords(c.Field, strs...), nil
		default:
			return nil, fmt.Errorf("mixed value types in filter on field %s", c.Field)
		}
	case And:
		inner, err := toQdrantFilter(c)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(inner), nil
	default:
		return nil, fmt.Errorf("unsupported filter %T", f)
	}
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
