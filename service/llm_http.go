package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AnTengye/legalanalyzer/config"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/google/uuid"
)

// maxResponseBytes bounds how much of an LLM response body is read
const maxResponseBytes = 8 << 20

// postJSON sends body as JSON to url and returns the raw response body and
// status code. A non-2xx status is returned together with the body so the
// caller can extract the provider's error message.
func postJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string) ([]byte, int, error) {
	reqID := uuid.New().String()
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug(ctx, "llm request", "llm_req_id", reqID, "content_length", len(payload))

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn(ctx, "llm request failed", "llm_req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Info(ctx, "llm response",
		"llm_req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// providerErrorMessage pulls error.message out of a provider error body.
// Both Gemini and OpenAI use that shape.
func providerErrorMessage(raw []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(bytes.TrimSpace(raw))
}

func newLLMHTTPClient(timeoutSeconds int) *http.Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 120
	}
	return &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
}

// NewGenerator builds the Generator for the configured provider
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiClient(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
