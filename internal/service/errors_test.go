package service

import (
	"errors"
	"fmt"
	"testing"

	"coursetutor/internal/storage"
)

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{Field: "course_id", Message: "is required"})

	if got, want := err.Error(), "validation error on field course_id: is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}

	wrapped := fmt.Errorf("send message: %w", err)
	var ve *ValidationError
	if !errors.As(wrapped, &ve) || ve.Field != "course_id" {
		t.Errorf("errors.As() field = %v, want course_id", ve)
	}
}

func TestErrorHelpers(t *testing.T) {
	dbErr := errors.New("database is locked")
	indexErr := errors.New("connection refused")

	tests := []struct {
		name    string
		got     error
		wantMsg string
		wantIs  []error
		wantNot []error
	}{
		{
			name:    "wrap",
			got:     WrapError(dbErr, "failed to list courses"),
			wantMsg: "failed to list courses: database is locked",
			wantIs:  []error{dbErr},
			wantNot: []error{ErrNotFound, ErrExternalService},
		},
		{
			name:    "storage not found",
			got:     storageError(fmt.Errorf("get course 3: %w", storage.ErrNotFound), "failed to get course"),
			wantMsg: "failed to get course: not found",
			wantIs:  []error{ErrNotFound},
			wantNot: []error{storage.ErrNotFound},
		},
		{
			name:    "storage other",
			got:     storageError(dbErr, "failed to get course"),
			wantMsg: "failed to get course: database is locked",
			wantIs:  []error{dbErr},
			wantNot: []error{ErrNotFound},
		},
		{
			name:    "external",
			got:     externalError(indexErr, "failed to delete document from index"),
			wantMsg: "failed to delete document from index: external service error: connection refused",
			wantIs:  []error{ErrExternalService, indexErr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", tt.got.Error(), tt.wantMsg)
			}
			for _, target := range tt.wantIs {
				if !errors.Is(tt.got, target) {
					t.Errorf("errors.Is(%v) = false, want true", target)
				}
			}
			for _, target := range tt.wantNot {
				if errors.Is(tt.got, target) {
					t.Errorf("errors.Is(%v) = true, want false", target)
				}
			}
		})
	}
}

func TestErrorHelpers_Nil(t *testing.T) {
	if err := WrapError(nil, "context"); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
	if err := externalError(nil, "context"); err != nil {
		t.Errorf("externalError(nil) = %v, want nil", err)
	}
}
