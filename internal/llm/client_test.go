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

	"google.golang.org/genai"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", "test-key", "test-model", time.Minute)
	if client.BaseURL != "http://localhost:8080" {
		t.Errorf("NewClient() BaseURL = %v, want trailing slash trimmed", client.BaseURL)
	}
	if client.APIKey != "test-key" || client.Model != "test-model" {
		t.Errorf("NewClient() = %+v", client)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name       string
		system     string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    error
		wantRetry  time.Duration
	}{
		{
			name:   "system message sent first",
			system: "You are a tutor.",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
					t.Errorf("messages = %+v", req.Messages)
				}
				if req.Stream {
					t.Error("Generate should not request a stream")
				}
				_ = json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: "Hi there"}}},
				})
			},
			wantReply: "Hi there",
		},
		{
			name: "no system message",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if len(req.Messages) != 1 {
					t.Errorf("expected only the user message, got %d", len(req.Messages))
				}
				_ = json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Content: "ok"}}},
				})
			},
			wantReply: "ok",
		},
		{
			name: "rate limited with retry-after",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte("slow down"))
			},
			wantRetry: 7 * time.Second,
		},
		{
			name: "server error",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: ErrGeneration,
		},
		{
			name: "no choices",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{})
			},
			wantErr: ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model", 5*time.Second)
			reply, err := client.Generate(context.Background(), "Hello", tt.system)

			if tt.wantRetry > 0 {
				d, ok := RetryAfter(err)
				if !ok {
					t.Fatalf("Generate() error = %v, want rate limit error", err)
				}
				if d != tt.wantRetry {
					t.Errorf("RetryAfter = %v, want %v", d, tt.wantRetry)
				}
				if errors.Is(err, ErrGeneration) {
					t.Error("rate limit error should not be ErrGeneration")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if reply != tt.wantReply {
				t.Errorf("Generate() = %q, want %q", reply, tt.wantReply)
			}
		})
	}
}

func sseServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, e := range events {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", e)
			flusher.Flush()
		}
	}))
}

func TestClient_GenerateStream(t *testing.T) {
	events := []string{
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`not json`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`{"choices":[{"delta":{"content":""},"finish_reason":"stop"}]}`,
		`{"choices":[{"delta":{"content":"ignored"}}]}`,
	}
	server := sseServer(t, events)
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 5*time.Second)
	var got strings.Builder
	err := client.GenerateStream(context.Background(), "hi", "", func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if got.String() != "Hello" {
		t.Errorf("GenerateStream() collected %q, want %q", got.String(), "Hello")
	}
}

func TestClient_GenerateStream_CallbackStops(t *testing.T) {
	server := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"one"}}]}`,
		`{"choices":[{"delta":{"content":"two"}}]}`,
		`[DONE]`,
	})
	defer server.Close()

	stop := errors.New("stop")
	calls := 0
	client := NewClient(server.URL, "k", "m", 5*time.Second)
	err := client.GenerateStream(context.Background(), "hi", "", func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("GenerateStream() error = %v, want wrapped stop", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestClient_GenerateStream_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 5*time.Second)
	err := client.GenerateStream(context.Background(), "hi", "", func(string) error { return nil })
	d, ok := RetryAfter(err)
	if !ok || d != DefaultRetryAfter {
		t.Errorf("RetryAfter = %v, %v; want %v, true", d, ok, DefaultRetryAfter)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "empty", header: "", want: DefaultRetryAfter},
		{name: "seconds", header: "30", want: 30 * time.Second},
		{name: "http date", header: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second},
		{name: "date in the past", header: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		{name: "garbage", header: "soon", want: DefaultRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestGeminiError(t *testing.T) {
	quota := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Details: []map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "37s"}},
	}
	err := geminiError(fmt.Errorf("call: %w", quota), ErrGeneration)
	if d, ok := RetryAfter(err); !ok || d != 37*time.Second {
		t.Errorf("RetryAfter = %v, %v; want 37s, true", d, ok)
	}

	noHint := genai.APIError{Code: http.StatusTooManyRequests}
	if d, _ := RetryAfter(geminiError(noHint, ErrGeneration)); d != DefaultRetryAfter {
		t.Errorf("RetryAfter without hint = %v, want %v", d, DefaultRetryAfter)
	}

	other := geminiError(genai.APIError{Code: http.StatusBadRequest}, ErrEmbeddingRequest)
	if !errors.Is(other, ErrEmbeddingRequest) {
		t.Errorf("geminiError() = %v, want ErrEmbeddingRequest", other)
	}
	if _, ok := RetryAfter(other); ok {
		t.Error("400 should not be a rate limit error")
	}
}
