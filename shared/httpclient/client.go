// Package httpclient is the transport used for calls from the gateway to its
// upstream services. Each Client talks to one service, applies a hard
// timeout and optionally trips a circuit breaker on transport failures.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cuongbtq/video-gateway/internal/metrics"
)

// DefaultTimeout bounds an upstream call when none is configured.
const DefaultTimeout = 30 * time.Second

// BreakerConfig controls the circuit breaker of a Client.
type BreakerConfig struct {
	Enabled      bool
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state counting window
	Timeout      time.Duration // open-state duration before probing
	MinRequests  uint32        // requests needed before the ratio is considered
	FailureRatio float64
}

// Config holds the settings for one upstream Client.
type Config struct {
	// Name identifies the service in logs and metrics
	Name    string
	Timeout time.Duration
	Breaker BreakerConfig
}

// Request is a single upstream call.
type Request struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
}

// Response is the upstream reply, fully read.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Client issues requests to a single upstream service.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Response]
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Client. A nil transport uses http.DefaultTransport.
func New(cfg Config, transport http.RoundTripper, m *metrics.Metrics, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		metrics: m,
		logger:  logger,
	}

	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Name, cfg.Breaker, m, logger)
		m.SetCircuitBreakerState(cfg.Name, stateToFloat(gobreaker.StateClosed))
	}

	return c
}

func newBreaker(name string, cfg BreakerConfig, m *metrics.Metrics, logger *slog.Logger) *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("service", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			m.SetCircuitBreakerState(name, stateToFloat(to))
		},
		// caller cancellation says nothing about upstream health
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})
}

// Do sends req. Any HTTP status is a successful round trip; an error is
// returned only when no response was received (connection refused, DNS,
// timeout, open circuit).
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	var (
		resp *Response
		err  error
	)
	if c.breaker != nil {
		resp, err = c.breaker.Execute(func() (*Response, error) {
			return c.do(ctx, req)
		})
	} else {
		resp, err = c.do(ctx, req)
	}

	duration := time.Since(start)
	switch {
	case err == nil:
		c.metrics.RecordUpstreamRequest(c.name, metrics.OutcomeSuccess, duration)
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.RecordUpstreamRequest(c.name, metrics.OutcomeRejected, duration)
	default:
		c.metrics.RecordUpstreamRequest(c.name, metrics.OutcomeFailure, duration)
	}

	if err != nil {
		c.logger.Warn("Upstream request failed",
			slog.String("service", c.name),
			slog.String("method", req.Method),
			slog.String("url", req.URL),
			slog.Duration("latency", duration),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.logger.Debug("Upstream request completed",
		slog.String("service", c.name),
		slog.String("method", req.Method),
		slog.String("url", req.URL),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", duration),
	)

	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if req.Body != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode:  httpResp.StatusCode,
		Body:        respBody,
		ContentType: httpResp.Header.Get("Content-Type"),
	}, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
