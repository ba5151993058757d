// Package adapter provides clients for the external collaborators of the
// packing API: the clip worker and the object store holding clip media.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/packing-audit/internal/circuitbreaker"
	"github.com/packing-audit/internal/config"
	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
)

// maxErrorBody caps how much of a failed worker response is read
const maxErrorBody = 64 << 10

// TriggerResult is the worker acknowledgement of a processing request
type TriggerResult struct {
	Status        string `json:"status"`
	PackingItemID string `json:"packing_item_id"`
	Message       string `json:"message,omitempty"`
}

// workerErrorBody covers both {"message"} and FastAPI {"detail"} bodies
type workerErrorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// WorkerClient triggers clip generation on the worker service
type WorkerClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// NewWorkerClient creates a client for the configured worker
func NewWorkerClient(cfg *config.WorkerConfig) *WorkerClient {
	return &WorkerClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			Name:        "clip-worker",
			MaxFailures: cfg.BreakerMaxFailures,
			Cooldown:    cfg.BreakerCooldown,
			IsFailure:   isWorkerOutage,
		}),
	}
}

// isWorkerOutage counts transport failures and 5xx answers against the
// breaker. A 4xx rejection means the worker is healthy.
func isWorkerOutage(err error) bool {
	if err == nil {
		return false
	}
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) && catErr.Code == apperrors.CodeWorkerError {
		return catErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// Trigger asks the worker to generate the clip of one packing item.
// Non-2xx answers become worker errors carrying the worker status and
// message; transport failures and an open breaker become 502s.
func (c *WorkerClient) Trigger(ctx context.Context, packingItemID string) (*TriggerResult, error) {
	var result *TriggerResult

	err := c.breaker.Execute(ctx, func() error {
		var err error
		result, err = c.trigger(ctx, packingItemID)
		return err
	})
	if err != nil {
		var catErr *apperrors.CategorizedError
		if errors.As(err, &catErr) {
			return nil, catErr
		}
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"packingItemId": packingItemID,
			"worker":        c.baseURL,
		}).WithError(err).Warn("Worker trigger failed")
		return nil, apperrors.NewWorkerUnavailableError(err)
	}
	return result, nil
}

func (c *WorkerClient) trigger(ctx context.Context, packingItemID string) (*TriggerResult, error) {
	payload, err := json.Marshal(map[string]string{"packing_item_id": packingItemID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trigger", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker request failed: %w", err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"packingItemId": packingItemID,
		"status":        resp.StatusCode,
		"durationMs":    time.Since(start).Milliseconds(),
	}).Debug("Worker trigger answered")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.NewWorkerError(resp.StatusCode, workerErrorMessage(resp.StatusCode, body))
	}

	var result TriggerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode worker response: %w", err)
	}
	return &result, nil
}

// workerErrorMessage extracts message, then a string detail, from a worker
// error body
func workerErrorMessage(status int, body []byte) string {
	var parsed workerErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		var detail string
		if len(parsed.Detail) > 0 && json.Unmarshal(parsed.Detail, &detail) == nil && detail != "" {
			return detail
		}
	}
	return fmt.Sprintf("Worker returned status %d", status)
}

// BreakerStats exposes the worker circuit breaker state for health checks
func (c *WorkerClient) BreakerStats() *circuitbreaker.Stats {
	return c.breaker.GetStats()
}
