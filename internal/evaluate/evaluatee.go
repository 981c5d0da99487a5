// Package evaluate invokes the system under test and scores its answers.
package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// Evaluatee produces an answer for a unit.
type Evaluatee interface {
	Invoke(ctx context.Context, unit model.Unit) (string, error)
}

// StatusError is a non-2xx reply from a remote endpoint.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Retryable reports whether the endpoint may succeed on another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// InvalidUnitError marks a unit that can never be evaluated as-is.
type InvalidUnitError struct {
	UnitID string
	Err    error
}

func (e *InvalidUnitError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.UnitID, e.Err)
}

func (e *InvalidUnitError) Unwrap() error { return e.Err }

// Retryable is always false.
func (e *InvalidUnitError) Retryable() bool { return false }

type invokeRequest struct {
	Input       interface{}   `json:"input"`
	Attachments []interface{} `json:"attachments"`
}

type invokeResponse struct {
	Output string `json:"output"`
}

// HTTPEvaluatee posts the unit input to an HTTP endpoint and reads back {"output": "..."}.
type HTTPEvaluatee struct {
	URL        string
	InputField string
	Headers    map[string]string
	Client     *http.Client
}

// Invoke implements Evaluatee.
func (e *HTTPEvaluatee) Invoke(ctx context.Context, unit model.Unit) (string, error) {
	input, ok := unit.Field(e.InputField)
	if !ok {
		return "", &InvalidUnitError{
			UnitID: unit.ID,
			Err:    &model.FieldError{Index: unit.Index, Field: e.InputField, Err: model.ErrMissingField},
		}
	}

	body, err := json.Marshal(invokeRequest{Input: input, Attachments: unit.Attachments})
	if err != nil {
		return "", &InvalidUnitError{UnitID: unit.ID, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke evaluatee: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read evaluatee response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: e.URL, StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	var out invokeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode evaluatee response: %w", err)
	}
	logging.Default.Debugw("Evaluatee answered", "unit", unit.ID, "bytes", len(out.Output))
	return out.Output, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
