package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coursetutor/internal/contextutil"
	"coursetutor/internal/indexer"
	"coursetutor/internal/service"
	"coursetutor/internal/storage"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 32 << 20

// DocumentHandler handles HTTP requests for course documents and their processing status.
type DocumentHandler struct {
	documentService service.DocumentService
	limits          indexer.Limits
}

// NewDocumentHandler creates a new DocumentHandler. Zero limits select the indexer defaults.
func NewDocumentHandler(documentService service.DocumentService, limits indexer.Limits) *DocumentHandler {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = indexer.DefaultMaxFileBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = indexer.DefaultMaxFiles
	}
	return &DocumentHandler{documentService: documentService, limits: limits}
}

// UploadResponse reports the outcome of every file in an upload.
//
// swagger:model UploadResponse
type UploadResponse struct {
	CourseID int64                `json:"course_id"`
	Queued   int                  `json:"queued"`
	Files    []indexer.FileResult `json:"files"`
}

// DocumentResponse is an uploaded file as returned by the API.
type DocumentResponse struct {
	ID          int64              `json:"id"`
	UnitID      *int64             `json:"unit_id,omitempty"`
	Filename    string             `json:"filename"`
	FileType    string             `json:"file_type"`
	FileSize    int64              `json:"file_size"`
	Status      storage.FileStatus `json:"status"`
	ChunksCount int                `json:"chunks_count"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
}

// Upload handles POST /api/courses/{courseID}/upload.
//
// The body is multipart/form-data with one or more "files" parts and optional
// "unit_id" or "topic" fields. Files are extracted synchronously and indexed
// in the background; poll the processing status endpoints for progress.
//
// swagger:route POST /api/courses/{courseID}/upload documents uploadDocuments
//
// responses:
//
//	'202':
//	  schema:
//	    "$ref": "#/definitions/UploadResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Every file may be up to the limit; allow some slack for form overhead.
	maxBody := h.limits.MaxFileBytes*int64(h.limits.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := service.UploadRequest{Topic: strings.TrimSpace(r.FormValue("topic"))}
	if raw := strings.TrimSpace(r.FormValue("unit_id")); raw != "" {
		unitID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || unitID <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid unit_id %q", raw))
			return
		}
		req.UnitID = &unitID
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) > h.limits.MaxFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many files: maximum %d per upload", h.limits.MaxFiles))
		return
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			logger.WarnContext(ctx, "failed to open uploaded file", "filename", fh.Filename, "error", err)
			writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		// One byte past the limit is enough for the pipeline to reject the file.
		data, err := io.ReadAll(io.LimitReader(f, h.limits.MaxFileBytes+1))
		_ = f.Close()
		if err != nil {
			logger.WarnContext(ctx, "failed to read uploaded file", "filename", fh.Filename, "error", err)
			writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		req.Files = append(req.Files, indexer.Upload{Filename: fh.Filename, Data: data})
	}

	results, err := h.documentService.Upload(ctx, userID, courseID, req)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to upload documents")
		return
	}

	resp := UploadResponse{CourseID: courseID, Files: results}
	for _, res := range results {
		if res.Status == indexer.ResultQueued {
			resp.Queued++
		}
	}
	writeJSON(ctx, w, http.StatusAccepted, resp)
}

// List handles GET /api/courses/{courseID}/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := h.documentService.ListDocuments(ctx, userID, courseID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, DocumentResponse{
			ID:          f.ID,
			UnitID:      f.UnitID,
			Filename:    f.Filename,
			FileType:    f.FileType,
			FileSize:    f.FileSize,
			Status:      f.Status,
			ChunksCount: f.ChunksCount,
			Error:       f.Error,
			CreatedAt:   f.CreatedAt,
			ProcessedAt: f.ProcessedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Delete handles DELETE /api/courses/{courseID}/documents/{fileID}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fileID, err := pathID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.documentService.DeleteDocument(ctx, userID, courseID, fileID); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProcessingStatus handles GET /api/processing/{courseID}/status.
func (h *DocumentHandler) ProcessingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.documentService.ProcessingStatus(ctx, userID, courseID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get processing status")
		return
	}
	writeJSON(ctx, w, http.StatusOK, status)
}

// FileStatus handles GET /api/processing/{courseID}/file/{fileID}/status.
func (h *DocumentHandler) FileStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	courseID, err := pathID(r, "courseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fileID, err := pathID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.documentService.FileStatus(ctx, userID, courseID, fileID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get file status")
		return
	}
	writeJSON(ctx, w, http.StatusOK, progress)
}
