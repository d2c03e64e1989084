package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_file_store.go -package=mocks coursetutor/internal/storage FileStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FileStore defines the interface for uploaded file storage operations.
type FileStore interface {
	// Create inserts a file record and sets its ID and CreatedAt.
	Create(ctx context.Context, file *FileRecord) error
	// Get returns a file by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id int64) (*FileRecord, error)
	// ListByCourse returns a course's files in upload order, without extracted text.
	ListByCourse(ctx context.Context, courseID int64) ([]FileRecord, error)
	// FindByHash returns the course's file with this text hash. Returns ErrNotFound if none.
	FindByHash(ctx context.Context, courseID int64, textHash string) (*FileRecord, error)
	// ListUnfinished returns files still pending or processing, oldest first, across all courses.
	ListUnfinished(ctx context.Context) ([]FileRecord, error)
	// SetStatus records a status transition. Terminal statuses also set processed_at.
	SetStatus(ctx context.Context, id int64, status FileStatus, chunksCount int, errMsg string) error
	// Delete removes a file and its chunk records.
	Delete(ctx context.Context, id int64) error
}

// FileRepo implements FileStore on SQLite.
type FileRepo struct {
	db *sql.DB
}

// NewFileRepo creates a new FileRepo.
func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

const fileColumns = "id, course_id, unit_id, filename, file_type, file_size, status, chunks_count, text_hash, error, created_at, processed_at"

func scanFile(s rowScanner, extra ...any) (*FileRecord, error) {
	var f FileRecord
	var unit sql.NullInt64
	var processed sql.NullTime
	dest := append([]any{
		&f.ID, &f.CourseID, &unit, &f.Filename, &f.FileType, &f.FileSize, &f.Status,
		&f.ChunksCount, &f.TextHash, &f.Error, &f.CreatedAt, &processed,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if unit.Valid {
		f.UnitID = &unit.Int64
	}
	if processed.Valid {
		f.ProcessedAt = &processed.Time
	}
	return &f, nil
}

// Create inserts a file record and sets its ID and CreatedAt.
func (r *FileRepo) Create(ctx context.Context, file *FileRecord) error {
	if file.Status == "" {
		file.Status = FileStatusPending
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO uploaded_files (course_id, unit_id, filename, file_type, file_size, status, text_hash, extracted_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.CourseID, file.UnitID, file.Filename, file.FileType, file.FileSize, file.Status, file.TextHash, file.ExtractedText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read file id: %w", err)
	}

	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*file = *created
	return nil
}

// Get returns a file by ID, including its extracted text. Returns ErrNotFound if not found.
func (r *FileRepo) Get(ctx context.Context, id int64) (*FileRecord, error) {
	var text string
	f, err := scanFile(r.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+", extracted_text FROM uploaded_files WHERE id = ?", id,
	), &text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	f.ExtractedText = text
	return f, nil
}

// ListByCourse returns a course's files in upload order, without extracted text.
func (r *FileRepo) ListByCourse(ctx context.Context, courseID int64) ([]FileRecord, error) {
	return r.list(ctx, "SELECT "+fileColumns+" FROM uploaded_files WHERE course_id = ? ORDER BY id", courseID)
}

// ListUnfinished returns files still pending or processing, oldest first, across all courses.
func (r *FileRepo) ListUnfinished(ctx context.Context) ([]FileRecord, error) {
	return r.list(ctx, "SELECT "+fileColumns+" FROM uploaded_files WHERE status IN (?, ?) ORDER BY id",
		FileStatusPending, FileStatusProcessing,
	)
}

func (r *FileRepo) list(ctx context.Context, query string, args ...any) ([]FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var files []FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return files, nil
}

// FindByHash returns the course's file with this text hash. Returns ErrNotFound if none.
func (r *FileRepo) FindByHash(ctx context.Context, courseID int64, textHash string) (*FileRecord, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM uploaded_files WHERE course_id = ? AND text_hash = ? ORDER BY id LIMIT 1",
		courseID, textHash,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file by hash: %w", err)
	}
	return f, nil
}

// SetStatus records a status transition. Terminal statuses also set processed_at.
func (r *FileRepo) SetStatus(ctx context.Context, id int64, status FileStatus, chunksCount int, errMsg string) error {
	query := "UPDATE uploaded_files SET status = ?, chunks_count = ?, error = ? WHERE id = ?"
	if status.Done() {
		query = "UPDATE uploaded_files SET status = ?, chunks_count = ?, error = ?, processed_at = CURRENT_TIMESTAMP WHERE id = ?"
	}

	result, err := r.db.ExecContext(ctx, query, status, chunksCount, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a file and its chunk records. Returns ErrNotFound if it did not exist.
func (r *FileRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM uploaded_files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
