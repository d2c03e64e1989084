package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"coursetutor/internal/contextutil"
)

// ModelLoader asks a llama.cpp router server to load a model and waits until
// it is resident.
type ModelLoader struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	loadTimeout  time.Duration
}

// NewModelLoader returns a loader that waits up to loadTimeout for a model to come up.
func NewModelLoader(baseURL string, loadTimeout time.Duration) *ModelLoader {
	return &ModelLoader{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       newHTTPClient(30 * time.Second),
		pollInterval: time.Second,
		loadTimeout:  loadTimeout,
	}
}

type loadRequest struct {
	Model string `json:"model"`
}

type loadResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// modelEntry is one element of the /models listing.
type modelEntry struct {
	ID      string `json:"id"`
	InCache bool   `json:"in_cache"`
	Status  struct {
		Failed   bool `json:"failed"`
		ExitCode int  `json:"exit_code"`
	} `json:"status"`
}

var (
	errModelLoading = errors.New("model still loading")
	errModelMissing = errors.New("model not listed")
	errLoadRequest  = errors.New("model load request failed")
)

// Ensure loads model unless the server already has it cached.
func (ml *ModelLoader) Ensure(ctx context.Context, model string) error {
	// A failed probe may be transient, so the load is attempted anyway.
	if err := ml.probe(ctx, model); err == nil {
		return nil
	}

	var resp loadResponse
	if err := ml.do(ctx, http.MethodPost, "/models/load", loadRequest{Model: model}, &resp); err != nil {
		return fmt.Errorf("failed to load model %s: %w", model, err)
	}
	if !resp.Success {
		return fmt.Errorf("failed to load model %s: %s", model, resp.Error)
	}
	return ml.wait(ctx, model)
}

// probe returns nil when model is cached, errModelLoading or errModelMissing
// while it is not, and a permanent error once the server reports a failed load.
func (ml *ModelLoader) probe(ctx context.Context, model string) error {
	var listing struct {
		Data []modelEntry `json:"data"`
	}
	if err := ml.do(ctx, http.MethodGet, "/models", nil, &listing); err != nil {
		return err
	}
	for _, m := range listing.Data {
		switch {
		case m.ID != model:
		case m.InCache:
			return nil
		case m.Status.Failed:
			return backoff.Permanent(fmt.Errorf("model %s exited with code %d", model, m.Status.ExitCode))
		default:
			return errModelLoading
		}
	}
	return errModelMissing
}

// wait polls until the model is resident. /models/load answers before loading finishes.
func (ml *ModelLoader) wait(ctx context.Context, model string) error {
	logger := contextutil.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, ml.loadTimeout)
	defer cancel()

	err := backoff.Retry(func() error {
		err := ml.probe(ctx, model)
		if err != nil {
			logger.DebugContext(ctx, "waiting for model", "model", model, "reason", err)
		}
		return err
	}, backoff.WithContext(backoff.NewConstantBackOff(ml.pollInterval), ctx))

	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("model %s did not load within %s: %w", model, ml.loadTimeout, err)
	}
	return err
}

func (ml *ModelLoader) do(ctx context.Context, method, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, ml.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ml.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp, errLoadRequest)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
