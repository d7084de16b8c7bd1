package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jjenkins/lawtrack/internal/config"
	"github.com/jjenkins/lawtrack/internal/model"
	"go.uber.org/zap"
)

// GenerationClient calls an Ollama-compatible /api/generate endpoint
type GenerationClient struct {
	url         string
	model       string
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.SugaredLogger
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewGenerationClient creates a generation client from its configuration
func NewGenerationClient(cfg config.GenerationConfig, logger *zap.SugaredLogger) *GenerationClient {
	return &GenerationClient{
		url:         strings.TrimRight(cfg.BaseURL, "/") + "/api/generate",
		model:       cfg.Model,
		client:      &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
	}
}

// Generate sends prompt and normalizes the JSON object the model answers with.
// Only an unparsable answer is retried; transport and status failures return
// at once wrapped in ErrGeneration.
func (c *GenerationClient) Generate(ctx context.Context, prompt string) (*model.Enrichment, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		raw, err := c.call(ctx, prompt, attempt)
		if err != nil {
			return nil, err
		}

		var obj map[string]any
		err = json.Unmarshal([]byte(raw), &obj)
		if err == nil && obj == nil {
			err = errors.New("response is not a JSON object")
		}
		if err == nil {
			return normalizeEnrichment(obj), nil
		}

		lastErr = err
		c.logger.Warnf("generation response is not JSON (attempt %d/%d): %s", attempt, c.maxAttempts, truncate(raw, 200))

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnparsableResponse, c.maxAttempts, lastErr)
}

func (c *GenerationClient) call(ctx context.Context, prompt string, attempt int) (string, error) {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	generationDuration.Observe(elapsed.Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	defer resp.Body.Close()

	c.logger.Infof("generation call took %.2fs (attempt=%d)", elapsed.Seconds(), attempt)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code: %d", ErrGeneration, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: failed to decode envelope: %w", ErrGeneration, err)
	}

	return strings.TrimSpace(out.Response), nil
}

// normalizeEnrichment maps a decoded model answer onto the stored fields
func normalizeEnrichment(obj map[string]any) *model.Enrichment {
	e := &model.Enrichment{}

	importance, _ := obj["importance"].(string)
	importance = strings.ToUpper(strings.TrimSpace(importance))
	switch importance {
	case model.ImportanceNone, model.ImportanceLow, model.ImportanceMedium, model.ImportanceHigh:
		e.Importance = sql.NullString{String: importance, Valid: true}
	}

	summary, _ := obj["summary"].(string)
	e.Summary = sql.NullString{String: summary, Valid: true}

	actions := obj["actions"]
	if importance == model.ImportanceNone {
		actions = []any{NoActionNeeded}
	}

	switch a := actions.(type) {
	case nil:
		e.Actions = sql.NullString{String: "", Valid: true}
	case string:
		e.Actions = sql.NullString{String: a, Valid: true}
	case []any:
		lines := make([]string, len(a))
		for i, item := range a {
			lines[i] = "- " + basicValue(item)
		}
		e.Actions = sql.NullString{String: strings.Join(lines, "\n"), Valid: true}
	}

	return e
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
