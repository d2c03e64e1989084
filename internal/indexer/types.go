package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_index.go -package=mocks coursetutor/internal/indexer ChunkIndex

import (
	"context"
	"errors"
	"time"

	"coursetutor/internal/chunking"
	"coursetutor/internal/storage"
)

var (
	// ErrNoFiles is returned when an upload carries no files.
	ErrNoFiles = errors.New("no files provided")
	// ErrTooManyFiles is returned when an upload exceeds the per-request file limit.
	ErrTooManyFiles = errors.New("too many files")
	// ErrUnitMismatch is returned when an explicit unit belongs to another course.
	ErrUnitMismatch = errors.New("unit does not belong to course")
)

// ChunkIndex stores embedded chunks. vectorstore.CourseIndex implements it.
type ChunkIndex interface {
	Insert(ctx context.Context, courseID int64, chunks []chunking.Chunk, ids []string) error
}

// Upload is one file received for ingestion.
type Upload struct {
	Filename string
	Data     []byte
}

// IngestRequest is a batch of uploads for one course. UnitID takes
// precedence over Topic; with neither, files go to the course's default unit.
type IngestRequest struct {
	CourseID int64
	UnitID   *int64
	Topic    string
	Files    []Upload
}

// Result statuses for one uploaded file.
const (
	ResultQueued    = "queued"
	ResultDuplicate = "duplicate"
	ResultSkipped   = "skipped"
	ResultError     = "error"
)

// FileResult reports what happened to one uploaded file.
type FileResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	FileID   int64  `json:"file_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Limits bounds a single upload request.
type Limits struct {
	MaxFileBytes int64
	MaxFiles     int
}

// FileProgress is the processing state of one file.
type FileProgress struct {
	FileID      int64              `json:"file_id"`
	Filename    string             `json:"filename"`
	Status      storage.FileStatus `json:"status"`
	ChunksCount int                `json:"chunks_count"`
	Error       string             `json:"error,omitempty"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
}

func progressOf(f storage.FileRecord) FileProgress {
	return FileProgress{
		FileID:      f.ID,
		Filename:    f.Filename,
		Status:      f.Status,
		ChunksCount: f.ChunksCount,
		Error:       f.Error,
		ProcessedAt: f.ProcessedAt,
	}
}
