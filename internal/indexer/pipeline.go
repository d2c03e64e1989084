package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"coursetutor/internal/chunking"
	"coursetutor/internal/contextutil"
	"coursetutor/internal/extract"
	"coursetutor/internal/storage"
)

const (
	// DefaultMaxFileBytes is the per-file upload limit.
	DefaultMaxFileBytes = 15 << 20
	// DefaultMaxFiles is the per-request upload limit.
	DefaultMaxFiles = 10

	topicUnitLevel   = 1
	defaultUnitLevel = 0
	queueSize        = 256
)

// Pipeline turns uploaded documents into indexed chunks.
// Ingestion records files as pending; processing chunks, embeds and stores them,
// either in background workers after Start or synchronously via Process.
type Pipeline struct {
	courses storage.CourseStore
	units   storage.UnitStore
	files   storage.FileStore
	chunks  storage.ChunkStore
	index   ChunkIndex
	chunker *chunking.Chunker
	limits  Limits

	jobs    chan int64
	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewPipeline creates a pipeline. Zero limits select the defaults.
func NewPipeline(
	courses storage.CourseStore,
	units storage.UnitStore,
	files storage.FileStore,
	chunks storage.ChunkStore,
	index ChunkIndex,
	chunker *chunking.Chunker,
	limits Limits,
) *Pipeline {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = DefaultMaxFileBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultMaxFiles
	}
	return &Pipeline{
		courses: courses,
		units:   units,
		files:   files,
		chunks:  chunks,
		index:   index,
		chunker: chunker,
		limits:  limits,
		jobs:    make(chan int64, queueSize),
	}
}

// Limits returns the upload limits in effect.
func (p *Pipeline) Limits() Limits { return p.limits }

// IngestFiles extracts text from each upload and records new documents as pending.
// Per-file problems are reported in the results; only request-level failures
// (limits, unknown course or unit) return an error.
func (p *Pipeline) IngestFiles(ctx context.Context, req IngestRequest) ([]FileResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(req.Files) == 0 {
		return nil, ErrNoFiles
	}
	if len(req.Files) > p.limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, maximum is %d", ErrTooManyFiles, len(req.Files), p.limits.MaxFiles)
	}

	course, err := p.courses.Get(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	unit, err := p.resolveUnit(ctx, course, req.UnitID, req.Topic)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(req.Files))
	for _, upload := range req.Files {
		result := p.ingestOne(ctx, course.ID, unit, upload)
		logger.InfoContext(ctx, "file ingested",
			"course_id", course.ID,
			"filename", upload.Filename,
			"status", result.Status,
			"reason", result.Reason,
		)
		if result.Status == ResultQueued {
			p.enqueue(ctx, result.FileID)
		}
		results = append(results, result)
	}
	return results, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, courseID int64, unit *storage.Unit, upload Upload) FileResult {
	result := FileResult{Filename: upload.Filename}

	if int64(len(upload.Data)) > p.limits.MaxFileBytes {
		result.Status = ResultSkipped
		result.Reason = fmt.Sprintf("file exceeds %s limit", formatBytes(p.limits.MaxFileBytes))
		return result
	}
	if !extract.Supported(upload.Filename) {
		result.Status = ResultSkipped
		result.Reason = "unsupported file type"
		return result
	}

	text, err := extract.Extract(upload.Filename, upload.Data)
	if err != nil {
		result.Status = ResultError
		result.Reason = err.Error()
		return result
	}
	if !extract.HasText(text) {
		result.Status = ResultSkipped
		result.Reason = "no text could be extracted"
		return result
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	existing, err := p.files.FindByHash(ctx, courseID, hash)
	switch {
	case err == nil:
		result.Status = ResultDuplicate
		result.FileID = existing.ID
		result.Reason = fmt.Sprintf("same content as %s", existing.Filename)
		return result
	case !errors.Is(err, storage.ErrNotFound):
		result.Status = ResultError
		result.Reason = fmt.Sprintf("failed to check duplicates: %v", err)
		return result
	}

	record := &storage.FileRecord{
		CourseID:      courseID,
		UnitID:        &unit.ID,
		Filename:      upload.Filename,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.Filename)), "."),
		FileSize:      int64(len(upload.Data)),
		Status:        storage.FileStatusPending,
		TextHash:      hash,
		ExtractedText: text,
	}
	if err := p.files.Create(ctx, record); err != nil {
		result.Status = ResultError
		result.Reason = fmt.Sprintf("failed to save file: %v", err)
		return result
	}

	result.Status = ResultQueued
	result.FileID = record.ID
	return result
}

// resolveUnit picks the unit new files attach to: the explicit unit, else a
// topic unit created on demand, else the course's default unit.
func (p *Pipeline) resolveUnit(ctx context.Context, course *storage.Course, unitID *int64, topic string) (*storage.Unit, error) {
	if unitID != nil {
		unit, err := p.units.Get(ctx, *unitID)
		if err != nil {
			return nil, fmt.Errorf("failed to get unit: %w", err)
		}
		if unit.CourseID != course.ID {
			return nil, fmt.Errorf("%w: unit %d, course %d", ErrUnitMismatch, unit.ID, course.ID)
		}
		return unit, nil
	}

	name, level := course.Name+" - Main", defaultUnitLevel
	if topic = strings.TrimSpace(topic); topic != "" {
		name, level = topic, topicUnitLevel
	}
	unit, err := p.units.GetOrCreateByName(ctx, course.ID, name, level)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve unit %q: %w", name, err)
	}
	return unit, nil
}

// Start launches background workers that process queued files until ctx is done.
// Without Start, queued files stay pending until Process is called.
func (p *Pipeline) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := range workers {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "processing workers started", "workers", workers)
}

// Resume queues files a previous run left pending or processing. Reprocessing
// overwrites any points already stored for a file. Start must be called first.
func (p *Pipeline) Resume(ctx context.Context) (int, error) {
	files, err := p.files.ListUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unfinished files: %w", err)
	}
	for _, f := range files {
		p.enqueue(ctx, f.ID)
	}
	if len(files) > 0 {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "resumed unfinished files", "count", len(files))
	}
	return len(files), nil
}

// Wait blocks until all workers have exited.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) enqueue(ctx context.Context, fileID int64) {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}

	select {
	case p.jobs <- fileID:
	case <-ctx.Done():
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "file left pending, request ended before it was queued", "file_id", fileID)
	}
}

func (p *Pipeline) worker(ctx context.Context, n int) {
	defer p.wg.Done()
	logger := contextutil.LoggerFromContext(ctx).With("worker", n)
	ctx = contextutil.WithLogger(ctx, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case fileID := <-p.jobs:
			if err := p.Process(ctx, fileID); err != nil {
				logger.ErrorContext(ctx, "file processing failed", "file_id", fileID, "error", err)
			}
		}
	}
}

// Process chunks, embeds and stores one pending file, recording the outcome
// in the file's status. Completed files are left alone.
func (p *Pipeline) Process(ctx context.Context, fileID int64) error {
	logger := contextutil.LoggerFromContext(ctx)

	file, err := p.files.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file %d: %w", fileID, err)
	}
	if file.Status == storage.FileStatusCompleted {
		logger.DebugContext(ctx, "skipping completed file", "file_id", fileID)
		return nil
	}

	if err := p.files.SetStatus(ctx, fileID, storage.FileStatusProcessing, 0, ""); err != nil {
		return fmt.Errorf("failed to mark file processing: %w", err)
	}

	n, err := p.indexFile(ctx, file)
	if err != nil {
		if serr := p.files.SetStatus(ctx, fileID, storage.FileStatusFailed, 0, err.Error()); serr != nil {
			logger.ErrorContext(ctx, "failed to record file failure", "file_id", fileID, "error", serr)
		}
		return fmt.Errorf("failed to process %s: %w", file.Filename, err)
	}

	if err := p.files.SetStatus(ctx, fileID, storage.FileStatusCompleted, n, ""); err != nil {
		return fmt.Errorf("failed to mark file completed: %w", err)
	}
	logger.InfoContext(ctx, "file processed", "file_id", fileID, "filename", file.Filename, "chunks", n)
	return nil
}

func (p *Pipeline) indexFile(ctx context.Context, file *storage.FileRecord) (int, error) {
	meta := chunking.Metadata{FileID: file.ID, Source: file.Filename}
	if file.UnitID != nil {
		unit, err := p.units.Get(ctx, *file.UnitID)
		if err != nil {
			return 0, fmt.Errorf("failed to get unit: %w", err)
		}
		meta.UnitID = unit.ID
		meta.UnitName = unit.Name
		meta.HierarchyLevel = chunking.IntPtr(unit.Level)
	}

	chunks := p.chunker.Chunk(file.ExtractedText, meta)
	if len(chunks) == 0 {
		return 0, errors.New("no chunks produced from extracted text")
	}

	ids := make([]string, len(chunks))
	records := make([]storage.ChunkRecord, len(chunks))
	for i, ch := range chunks {
		ids[i] = chunking.ChunkID(file.CourseID, file.ID, ch.Metadata.ChunkIndex)
		records[i] = storage.ChunkRecord{
			ID:         ids[i],
			FileID:     file.ID,
			CourseID:   file.CourseID,
			ChunkIndex: ch.Metadata.ChunkIndex,
			WordCount:  len(strings.Fields(ch.Content)),
		}
	}

	if err := p.index.Insert(ctx, file.CourseID, chunks, ids); err != nil {
		return 0, err
	}
	if err := p.chunks.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to record chunks: %w", err)
	}
	return len(chunks), nil
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
