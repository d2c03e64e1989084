package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks coursetutor/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// InsertBatch inserts the chunks of one file in a single transaction.
	InsertBatch(ctx context.Context, chunks []ChunkRecord) error
	// DeleteByFile deletes all chunks for a given file ID.
	DeleteByFile(ctx context.Context, fileID int64) error
	// ListIDsByFile returns all chunk IDs for a given file, ordered by chunk_index.
	ListIDsByFile(ctx context.Context, fileID int64) ([]string, error)
	// WordCounts returns the word count of every chunk in a course.
	WordCounts(ctx context.Context, courseID int64) ([]int, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertBatch inserts the chunks of one file in a single transaction.
// Existing rows with the same ID are replaced so reprocessing a file is idempotent.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []ChunkRecord) (err error) {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO chunks (id, file_id, course_id, chunk_index, word_count) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		if _, err = stmt.ExecContext(ctx, c.ID, c.FileID, c.CourseID, c.ChunkIndex, c.WordCount); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// DeleteByFile deletes all chunks for a given file ID.
func (r *ChunkRepo) DeleteByFile(ctx context.Context, fileID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by file: %w", err)
	}
	return nil
}

// ListIDsByFile returns all chunk IDs for a given file, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
// Used to find vector point IDs when a document is deleted.
func (r *ChunkRepo) ListIDsByFile(ctx context.Context, fileID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE file_id = ? ORDER BY chunk_index",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// WordCounts returns the word count of every chunk in a course.
func (r *ChunkRepo) WordCounts(ctx context.Context, courseID int64) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT word_count FROM chunks WHERE course_id = ?", courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query word counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var counts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan word count: %w", err)
		}
		counts = append(counts, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}
