package chunking

import (
	"fmt"
	"strconv"
)

// Metadata is attached to every chunk produced from a document.
type Metadata struct {
	FileID         int64  // Uploaded file the chunk came from
	Source         string // Original filename
	UnitID         int64
	UnitName       string
	ChunkIndex     int  // Position within the file (starts at 0)
	HierarchyLevel *int // Depth of the owning unit in the course tree, when known
}

// Chunk is a bounded segment of document text plus metadata; the unit of embedding and retrieval.
type Chunk struct {
	Content  string
	Metadata Metadata
}

// RetrievedChunk is a chunk returned by a similarity query.
type RetrievedChunk struct {
	Chunk
	ID       string  // Composite chunk id (see ChunkID)
	Distance float64 // Lower is closer
}

// Payload field names shared by the vector index and the retriever's filters.
const (
	FieldFileID         = "file_id"
	FieldSource         = "source"
	FieldUnitID         = "unit_id"
	FieldUnitName       = "unit_name"
	FieldChunkIndex     = "chunk_index"
	FieldHierarchyLevel = "hierarchy_level"
)

// ChunkID returns the deterministic external id of a chunk: "<course_id>/<file_id>/<chunk_index>".
func ChunkID(courseID, fileID int64, chunkIndex int) string {
	return fmt.Sprintf("%d/%d/%d", courseID, fileID, chunkIndex)
}

// Fields flattens the metadata into index payload fields.
func (m Metadata) Fields() map[string]any {
	fields := map[string]any{
		FieldFileID:     m.FileID,
		FieldSource:     m.Source,
		FieldUnitID:     m.UnitID,
		FieldUnitName:   m.UnitName,
		FieldChunkIndex: int64(m.ChunkIndex),
	}
	if m.HierarchyLevel != nil {
		fields[FieldHierarchyLevel] = int64(*m.HierarchyLevel)
	}
	return fields
}

// MetadataFromFields is the inverse of Metadata.Fields. Unknown or mistyped
// fields are left at their zero value.
func MetadataFromFields(fields map[string]any) Metadata {
	var m Metadata
	if v, ok := asInt64(fields[FieldFileID]); ok {
		m.FileID = v
	}
	if v, ok := fields[FieldSource].(string); ok {
		m.Source = v
	}
	if v, ok := asInt64(fields[FieldUnitID]); ok {
		m.UnitID = v
	}
	if v, ok := fields[FieldUnitName].(string); ok {
		m.UnitName = v
	}
	if v, ok := asInt64(fields[FieldChunkIndex]); ok {
		m.ChunkIndex = int(v)
	}
	if v, ok := asInt64(fields[FieldHierarchyLevel]); ok {
		level := int(v)
		m.HierarchyLevel = &level
	}
	return m
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
