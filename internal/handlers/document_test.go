package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"coursetutor/internal/indexer"
	"coursetutor/internal/service"
	"coursetutor/internal/service/mocks"
	"coursetutor/internal/storage"
)

type formFile struct {
	name string
	data string
}

func multipartBody(t *testing.T, fields map[string]string, files []formFile) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write([]byte(f.data))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

func TestDocumentHandler_Upload(t *testing.T) {
	limits := indexer.Limits{MaxFileBytes: 16, MaxFiles: 2}
	unitID := int64(4)

	tests := []struct {
		name       string
		fields     map[string]string
		files      []formFile
		mockSetup  func(*mocks.MockDocumentService)
		wantStatus int
		wantQueued int
	}{
		{
			name:   "accepted",
			fields: map[string]string{"unit_id": "4"},
			files:  []formFile{{"cells.md", "# Cells"}, {"big.txt", strings.Repeat("x", 40)}},
			mockSetup: func(m *mocks.MockDocumentService) {
				m.EXPECT().Upload(gomock.Any(), "u1", int64(1), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, _ int64, req service.UploadRequest) ([]indexer.FileResult, error) {
						if req.UnitID == nil || *req.UnitID != unitID {
							t.Errorf("UnitID = %v, want 4", req.UnitID)
						}
						if len(req.Files) != 2 || string(req.Files[0].Data) != "# Cells" {
							t.Errorf("Files = %+v", req.Files)
						}
						// Oversized files are truncated just past the limit.
						if len(req.Files[1].Data) != 17 {
							t.Errorf("oversized file read %d bytes, want 17", len(req.Files[1].Data))
						}
						return []indexer.FileResult{
							{Filename: "cells.md", Status: indexer.ResultQueued, FileID: 3},
							{Filename: "big.txt", Status: indexer.ResultSkipped, Reason: "file exceeds 16 B limit"},
						}, nil
					})
			},
			wantStatus: http.StatusAccepted,
			wantQueued: 1,
		},
		{
			name:   "topic",
			fields: map[string]string{"topic": " Genetics "},
			files:  []formFile{{"dna.txt", "DNA"}},
			mockSetup: func(m *mocks.MockDocumentService) {
				m.EXPECT().Upload(gomock.Any(), "u1", int64(1), service.UploadRequest{
					Topic: "Genetics",
					Files: []indexer.Upload{{Filename: "dna.txt", Data: []byte("DNA")}},
				}).Return([]indexer.FileResult{{Filename: "dna.txt", Status: indexer.ResultDuplicate, FileID: 2}}, nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "too many files",
			files:      []formFile{{"a.txt", "a"}, {"b.txt", "b"}, {"c.txt", "c"}},
			mockSetup:  func(m *mocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad unit id",
			fields:     map[string]string{"unit_id": "abc"},
			files:      []formFile{{"a.txt", "a"}},
			mockSetup:  func(m *mocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "no files",
			files: nil,
			mockSetup: func(m *mocks.MockDocumentService) {
				m.EXPECT().Upload(gomock.Any(), "u1", int64(1), gomock.Any()).
					Return(nil, &service.ValidationError{Field: "files", Message: "no files provided"})
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDocumentService(ctrl)
			tt.mockSetup(m)

			body, contentType := multipartBody(t, tt.fields, tt.files)
			req := newRequest(http.MethodPost, "/api/courses/1/upload", body, "u1", map[string]string{"courseID": "1"})
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			NewDocumentHandler(m, limits).Upload(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Upload() status = %v, want %v: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code == http.StatusAccepted {
				resp, err := decodeBody[UploadResponse](w)
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.CourseID != 1 || resp.Queued != tt.wantQueued {
					t.Errorf("Upload() body = %+v", resp)
				}
			}
		})
	}
}

func TestDocumentHandler_Upload_NotMultipart(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDocumentService(ctrl)

	req := newRequest(http.MethodPost, "/api/courses/1/upload", `{"files":[]}`, "u1", map[string]string{"courseID": "1"})
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewDocumentHandler(m, indexer.Limits{}).Upload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Upload() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestDocumentHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDocumentService(ctrl)
	m.EXPECT().ListDocuments(gomock.Any(), "u1", int64(1)).Return([]storage.FileRecord{
		{ID: 3, Filename: "cells.pdf", FileType: "pdf", Status: storage.FileStatusCompleted, ChunksCount: 12},
	}, nil)

	w := httptest.NewRecorder()
	NewDocumentHandler(m, indexer.Limits{}).List(w, newRequest(http.MethodGet, "/api/courses/1/documents", nil, "u1", map[string]string{"courseID": "1"}))

	if w.Code != http.StatusOK {
		t.Fatalf("List() status = %v, want %v", w.Code, http.StatusOK)
	}
	docs, err := decodeBody[[]DocumentResponse](w)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 1 || docs[0].Status != storage.FileStatusCompleted || docs[0].ChunksCount != 12 {
		t.Errorf("List() body = %+v", docs)
	}
}

func TestDocumentHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"index unavailable", service.ErrExternalService, http.StatusBadGateway},
		{"missing", service.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDocumentService(ctrl)
			m.EXPECT().DeleteDocument(gomock.Any(), "u1", int64(1), int64(3)).Return(tt.err)

			w := httptest.NewRecorder()
			params := map[string]string{"courseID": "1", "fileID": "3"}
			NewDocumentHandler(m, indexer.Limits{}).Delete(w, newRequest(http.MethodDelete, "/api/courses/1/documents/3", nil, "u1", params))

			if w.Code != tt.wantStatus {
				t.Errorf("Delete() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestDocumentHandler_ProcessingStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDocumentService(ctrl)
	m.EXPECT().ProcessingStatus(gomock.Any(), "u1", int64(1)).Return(&indexer.ProcessingStatus{
		CourseID:     1,
		Files:        []indexer.FileProgress{{FileID: 3, Status: storage.FileStatusPending}},
		PendingCount: 1,
	}, nil)
	m.EXPECT().FileStatus(gomock.Any(), "u1", int64(1), int64(3)).Return(&indexer.FileProgress{FileID: 3, Status: storage.FileStatusProcessing}, nil)

	h := NewDocumentHandler(m, indexer.Limits{})

	w := httptest.NewRecorder()
	h.ProcessingStatus(w, newRequest(http.MethodGet, "/api/processing/1/status", nil, "u1", map[string]string{"courseID": "1"}))
	if w.Code != http.StatusOK {
		t.Fatalf("ProcessingStatus() status = %v, want %v", w.Code, http.StatusOK)
	}
	status, err := decodeBody[indexer.ProcessingStatus](w)
	if err != nil || status.PendingCount != 1 || status.AllCompleted {
		t.Errorf("ProcessingStatus() body = %+v, %v", status, err)
	}

	w = httptest.NewRecorder()
	params := map[string]string{"courseID": "1", "fileID": "3"}
	h.FileStatus(w, newRequest(http.MethodGet, "/api/processing/1/file/3/status", nil, "u1", params))
	if w.Code != http.StatusOK {
		t.Fatalf("FileStatus() status = %v, want %v", w.Code, http.StatusOK)
	}
	progress, err := decodeBody[indexer.FileProgress](w)
	if err != nil || progress.Status != storage.FileStatusProcessing {
		t.Errorf("FileStatus() body = %+v, %v", progress, err)
	}
}
