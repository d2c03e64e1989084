package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingester.go -package=mocks coursetutor/internal/service Ingester
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks coursetutor/internal/service DocumentService

import (
	"context"
	"errors"

	"coursetutor/internal/contextutil"
	"coursetutor/internal/indexer"
	"coursetutor/internal/storage"
)

// Ingester accepts uploads and reports processing progress. *indexer.Pipeline implements it.
type Ingester interface {
	IngestFiles(ctx context.Context, req indexer.IngestRequest) ([]indexer.FileResult, error)
	Status(ctx context.Context, courseID int64) (*indexer.ProcessingStatus, error)
	FileStatus(ctx context.Context, courseID, fileID int64) (*indexer.FileProgress, error)
}

// UploadRequest is a batch of files for one course.
type UploadRequest struct {
	UnitID *int64
	Topic  string
	Files  []indexer.Upload
}

// DocumentService manages a course's uploaded documents.
type DocumentService interface {
	Upload(ctx context.Context, userID string, courseID int64, req UploadRequest) ([]indexer.FileResult, error)
	ListDocuments(ctx context.Context, userID string, courseID int64) ([]storage.FileRecord, error)
	// DeleteDocument removes a file's points from the index, then the file and its chunk records.
	DeleteDocument(ctx context.Context, userID string, courseID, fileID int64) error
	ProcessingStatus(ctx context.Context, userID string, courseID int64) (*indexer.ProcessingStatus, error)
	FileStatus(ctx context.Context, userID string, courseID, fileID int64) (*indexer.FileProgress, error)
}

type documentService struct {
	courses  storage.CourseStore
	files    storage.FileStore
	chunks   storage.ChunkStore
	index    CourseIndex
	ingester Ingester
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	courses storage.CourseStore,
	files storage.FileStore,
	chunks storage.ChunkStore,
	index CourseIndex,
	ingester Ingester,
) DocumentService {
	return &documentService{courses: courses, files: files, chunks: chunks, index: index, ingester: ingester}
}

func (s *documentService) Upload(ctx context.Context, userID string, courseID int64, req UploadRequest) ([]indexer.FileResult, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return nil, err
	}

	results, err := s.ingester.IngestFiles(ctx, indexer.IngestRequest{
		CourseID: courseID,
		UnitID:   req.UnitID,
		Topic:    req.Topic,
		Files:    req.Files,
	})
	switch {
	case err == nil:
	case errors.Is(err, indexer.ErrNoFiles), errors.Is(err, indexer.ErrTooManyFiles):
		return nil, &ValidationError{Field: "files", Message: err.Error()}
	case errors.Is(err, indexer.ErrUnitMismatch):
		return nil, &ValidationError{Field: "unit_id", Message: err.Error()}
	default:
		return nil, storageError(err, "failed to ingest files")
	}

	queued := 0
	for _, r := range results {
		if r.Status == indexer.ResultQueued {
			queued++
		}
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "upload accepted",
		"course_id", courseID,
		"files", len(results),
		"queued", queued,
	)
	return results, nil
}

func (s *documentService) ListDocuments(ctx context.Context, userID string, courseID int64) ([]storage.FileRecord, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return nil, err
	}
	files, err := s.files.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}
	return files, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, userID string, courseID, fileID int64) error {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return err
	}
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return storageError(err, "failed to get document")
	}
	if file.CourseID != courseID {
		return WrapError(ErrNotFound, "document not in course")
	}

	ids, err := s.chunks.ListIDsByFile(ctx, fileID)
	if err != nil {
		return WrapError(err, "failed to list document chunks")
	}
	if len(ids) > 0 {
		if err := s.index.DeletePoints(ctx, courseID, ids); err != nil {
			return externalError(err, "failed to delete document from index")
		}
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		return storageError(err, "failed to delete document")
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "document deleted",
		"course_id", courseID,
		"file_id", fileID,
		"chunks", len(ids),
	)
	return nil
}

func (s *documentService) ProcessingStatus(ctx context.Context, userID string, courseID int64) (*indexer.ProcessingStatus, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return nil, err
	}
	status, err := s.ingester.Status(ctx, courseID)
	if err != nil {
		return nil, WrapError(err, "failed to get processing status")
	}
	return status, nil
}

func (s *documentService) FileStatus(ctx context.Context, userID string, courseID, fileID int64) (*indexer.FileProgress, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, courseID); err != nil {
		return nil, err
	}
	progress, err := s.ingester.FileStatus(ctx, courseID, fileID)
	if err != nil {
		return nil, storageError(err, "failed to get file status")
	}
	return progress, nil
}
