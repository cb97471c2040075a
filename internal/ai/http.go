// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/courtvision/internal/config"
	"github.com/tomtom215/courtvision/internal/logging"
	"github.com/tomtom215/courtvision/internal/metrics"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("ai: inference unavailable")

// HTTPClient implements Inference against a chat-completions style
// JSON API. All calls run under a circuit breaker and a client-side
// rate limit; when the breaker is open calls fail fast with
// ErrUnavailable and the reactors degrade.
type HTTPClient struct {
	http     *http.Client
	endpoint string
	apiKey   string
	model    string
	maxTok   int
	breaker  *gobreaker.CircuitBreaker[[]byte]
	limiter  *rate.Limiter
}

var _ Inference = (*HTTPClient)(nil)

// NewHTTPClient builds the inference client from configuration.
func NewHTTPClient(cfg config.AIConfig) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        "inference",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("inference circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	limit := cfg.RateLimitPerSecond
	if limit <= 0 {
		limit = 2
	}

	return &HTTPClient{
		http:     &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		maxTok:   cfg.MaxTokens,
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
		limiter:  rate.NewLimiter(rate.Limit(limit), 1),
	}
}

// EstimateWinProbability implements Inference.
func (c *HTTPClient) EstimateWinProbability(ctx context.Context, req *WinProbRequest) (*WinProbResult, error) {
	raw, err := c.complete(ctx, winProbPrompt(req))
	if err != nil {
		return nil, err
	}
	var result WinProbResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode win probability reply: %w", err)
	}
	if result.Home < 0 || result.Home > 1 || result.Away < 0 || result.Away > 1 {
		return nil, fmt.Errorf("win probability out of range: home=%v away=%v", result.Home, result.Away)
	}
	return &result, nil
}

// GenerateCommentary implements Inference.
func (c *HTTPClient) GenerateCommentary(ctx context.Context, req *CommentaryRequest) (*CommentaryResult, error) {
	raw, err := c.complete(ctx, commentaryPrompt(req))
	if err != nil {
		return nil, err
	}
	var result CommentaryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode commentary reply: %w", err)
	}
	if result.Text == "" {
		return nil, fmt.Errorf("empty commentary reply")
	}
	return &result, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one prompt and returns the JSON object embedded in
// the model's reply.
func (c *HTTPClient) complete(ctx context.Context, prompt string) ([]byte, error) {
	start := time.Now()
	reply, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, prompt)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordInference("rejected", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		metrics.RecordInference("error", time.Since(start))
		return nil, err
	}
	metrics.RecordInference("success", time.Since(start))

	return extractJSON(reply)
}

func (c *HTTPClient) post(ctx context.Context, prompt string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTok,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("inference response has no choices")
	}
	return []byte(parsed.Choices[0].Message.Content), nil
}

// extractJSON pulls the first JSON object out of a model reply, which
// may wrap it in prose or a code fence.
func extractJSON(reply []byte) ([]byte, error) {
	s := string(reply)
	startIdx := strings.Index(s, "{")
	endIdx := strings.LastIndex(s, "}")
	if startIdx < 0 || endIdx <= startIdx {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	return []byte(s[startIdx : endIdx+1]), nil
}
