package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// embeddingServer answers /v1/embeddings with the given body and records the last request.
func embeddingServer(t *testing.T, body string, got *embeddingsRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/embeddings" {
			t.Errorf("request = %s %s, want POST /v1/embeddings", r.Method, r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:8081/", "test-key", "granite", 768, time.Minute)
	if client.BaseURL != "http://localhost:8081" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", client.BaseURL)
	}
	if client.ExpectedSize != 768 {
		t.Errorf("ExpectedSize = %d, want 768", client.ExpectedSize)
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		body    string
		want    [][]float32
		wantErr string
	}{
		{
			name:  "vectors in input order",
			texts: []string{"mitosis", "meiosis"},
			body:  `{"data":[{"index":0,"embedding":[1.5,0,0]},{"index":1,"embedding":[0,2.5,0]}]}`,
			want:  [][]float32{{1.5, 0, 0}, {0, 2.5, 0}},
		},
		{
			name:  "reordered by index",
			texts: []string{"mitosis", "meiosis"},
			body:  `{"data":[{"index":1,"embedding":[0,1,0]},{"index":0,"embedding":[1,0,0]}]}`,
			want:  [][]float32{{1, 0, 0}, {0, 1, 0}},
		},
		{
			name:  "no index field",
			texts: []string{"cell"},
			body:  `{"data":[{"embedding":[0,0,3.5]}]}`,
			want:  [][]float32{{0, 0, 3.5}},
		},
		{
			name:    "empty input",
			texts:   nil,
			wantErr: "no texts",
		},
		{
			name:    "wrong embedding count",
			texts:   []string{"a", "b"},
			body:    `{"data":[{"index":0,"embedding":[1,0,0]}]}`,
			wantErr: "expected 2 embeddings, got 1",
		},
		{
			name:    "duplicate index",
			texts:   []string{"a", "b"},
			body:    `{"data":[{"index":0,"embedding":[1,0,0]},{"index":0,"embedding":[1,0,0]}]}`,
			wantErr: "invalid embedding index 0",
		},
		{
			name:    "wrong vector size",
			texts:   []string{"a"},
			body:    `{"data":[{"index":0,"embedding":[1,0]}]}`,
			wantErr: "has size 2, expected 3",
		},
		{
			name:    "malformed body",
			texts:   []string{"a"},
			body:    `{"data":`,
			wantErr: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := embeddingServer(t, tt.body, nil)
			client := NewEmbeddingsClient(srv.URL, "test-key", "test-model", 3, 5*time.Second)

			got, err := client.EmbedTexts(context.Background(), tt.texts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("EmbedTexts() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EmbedTexts() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("EmbedTexts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTexts_Request(t *testing.T) {
	var req embeddingsRequest
	srv := embeddingServer(t, `{"data":[{"index":0,"embedding":[1,0,0]},{"index":1,"embedding":[0,1,0]}]}`, &req)
	client := NewEmbeddingsClient(srv.URL, "", "granite", 3, 5*time.Second)

	if _, err := client.EmbedTexts(context.Background(), []string{"cells", "  "}); err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if req.Model != "granite" {
		t.Errorf("model = %q, want granite", req.Model)
	}
	if req.EncodingFormat != "float" {
		t.Errorf("encoding_format = %q, want float", req.EncodingFormat)
	}
	if len(req.Input) != 2 || req.Input[0] != "cells" || req.Input[1] != blankInput {
		t.Errorf("input = %q, want blank text replaced", req.Input)
	}
}

func TestEmbeddingsClient_EmbedTexts_ErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retry     string
		wantLimit bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, retry: "3", wantLimit: true},
		{name: "bad request", status: http.StatusBadRequest},
		{name: "server error", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retry != "" {
					w.Header().Set("Retry-After", tt.retry)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "k", "m", 3, 5*time.Second)
			_, err := client.EmbedTexts(context.Background(), []string{"x"})

			d, limited := RetryAfter(err)
			if limited != tt.wantLimit {
				t.Fatalf("RetryAfter ok = %v, want %v (err %v)", limited, tt.wantLimit, err)
			}
			if limited && d != 3*time.Second {
				t.Errorf("RetryAfter = %v, want 3s", d)
			}
			if !limited && !errors.Is(err, ErrEmbeddingRequest) {
				t.Errorf("error = %v, want ErrEmbeddingRequest", err)
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTexts_Unreachable(t *testing.T) {
	client := NewEmbeddingsClient("http://127.0.0.1:1", "k", "m", 3, time.Second)
	_, err := client.EmbedTexts(context.Background(), []string{"x"})
	if !errors.Is(err, ErrEmbeddingRequest) {
		t.Errorf("error = %v, want ErrEmbeddingRequest", err)
	}
}
