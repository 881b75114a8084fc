package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bimakw/facilitator-indexer/internal/domain"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/metrics"
)

// HTTPExecutorConfig configures an HTTPExecutor
type HTTPExecutorConfig struct {
	Endpoint       string
	APIKey         string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Label          string // metrics label, e.g. "bitquery"
}

// HTTPExecutor posts GraphQL queries to a chain indexer API
type HTTPExecutor struct {
	endpoint   string
	apiKey     string
	label      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ Executor = (*HTTPExecutor)(nil)

// NewHTTPExecutor creates a new GraphQL executor. A zero RateLimitRPS
// disables client-side rate limiting.
func NewHTTPExecutor(cfg HTTPExecutorConfig, logger *zap.Logger) *HTTPExecutor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	label := cfg.Label
	if label == "" {
		label = "http"
	}

	e := &HTTPExecutor{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		label:      label,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return e
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute sends the query and returns the "data" member of the response
func (e *HTTPExecutor) Execute(ctx context.Context, query string) (json.RawMessage, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(e.label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(e.label, "network_error").Inc()
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(e.label, "network_error").Inc()
		return nil, &domain.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	metrics.ProviderRequests.WithLabelValues(e.label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn("Provider returned non-2xx status",
			zap.String("provider", e.label),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &domain.TransportError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &domain.MalformedResponseError{Field: "body", Err: err}
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, m := range envelope.Errors {
			messages[i] = m.Message
		}
		return nil, &domain.ProviderError{Messages: messages}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, &domain.MalformedResponseError{Field: "data"}
	}

	e.logger.Debug("Provider request completed",
		zap.String("provider", e.label),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(respBody)),
	)
	return envelope.Data, nil
}
