package indexer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"coursetutor/internal/storage"
)

// ChunkWordStats summarizes chunk sizes in words.
type ChunkWordStats struct {
	Count int     `json:"count"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	P95   int     `json:"p95"`
}

// ProcessingStatus is the ingestion progress of a course.
type ProcessingStatus struct {
	CourseID     int64          `json:"course_id"`
	Files        []FileProgress `json:"files"`
	AllCompleted bool           `json:"all_completed"`
	PendingCount int            `json:"pending_count"`
	ChunkStats   ChunkWordStats `json:"chunk_stats"`
}

// Status reports per-file progress and chunk statistics for a course.
// AllCompleted is true when no file is still pending or processing.
func (p *Pipeline) Status(ctx context.Context, courseID int64) (*ProcessingStatus, error) {
	files, err := p.files.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	counts, err := p.chunks.WordCounts(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk sizes: %w", err)
	}

	status := &ProcessingStatus{
		CourseID:   courseID,
		Files:      make([]FileProgress, 0, len(files)),
		ChunkStats: computeWordStats(counts),
	}
	for _, f := range files {
		status.Files = append(status.Files, progressOf(f))
		if !f.Status.Done() {
			status.PendingCount++
		}
	}
	status.AllCompleted = status.PendingCount == 0
	return status, nil
}

// FileStatus reports the progress of one file. A file from another course is reported as not found.
func (p *Pipeline) FileStatus(ctx context.Context, courseID, fileID int64) (*FileProgress, error) {
	f, err := p.files.Get(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if f.CourseID != courseID {
		return nil, fmt.Errorf("file %d in course %d: %w", fileID, courseID, storage.ErrNotFound)
	}
	progress := progressOf(*f)
	return &progress, nil
}

// computeWordStats computes min, max, mean, and p95 from word counts.
func computeWordStats(counts []int) ChunkWordStats {
	if len(counts) == 0 {
		return ChunkWordStats{}
	}

	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Ints(sorted)

	sum := 0
	for _, c := range sorted {
		sum += c
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95Index = max(0, min(p95Index, len(sorted)-1))

	return ChunkWordStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  math.Round(mean*100) / 100,
		P95:   sorted[p95Index],
	}
}
