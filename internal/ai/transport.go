package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
)

const (
	// maxResponseBytes caps how much of a provider body is read (1 MB).
	maxResponseBytes = 1 << 20

	// probeTimeout bounds a single connectivity probe.
	probeTimeout = 5 * time.Second

	tracerName = "github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
)

// RawResponse is what the provider sent back on the final attempt. It is
// consumed once by Normalize.
type RawResponse struct {
	StatusCode int
	Body       []byte

	// Attempts counts main-call attempts (probes excluded).
	Attempts int
	Elapsed  time.Duration
}

// Client performs provider calls with per-attempt timeouts, an optional
// connectivity probe, and linear backoff retries. It holds no per-call state
// and is safe for concurrent use; the same Client serves the HTTP and gRPC
// call sites.
type Client struct {
	http   *http.Client
	tls    *tls.Config
	logger *slog.Logger
	tracer trace.Tracer
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Timeouts on it are
// unnecessary; each attempt carries its own deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTLSConfig sets the TLS configuration of the default transport. This is
// the only place custom TLS behaviour for providers belongs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) { c.tls = cfg }
}

// WithSleep replaces the backoff sleep. The function must return ctx.Err()
// when ctx ends before d elapses.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// NewClient returns a Client. Outbound requests are instrumented with
// otelhttp unless a custom HTTP client is supplied.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		logger: logger,
		tracer: otel.Tracer(tracerName),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if c.tls != nil {
			base.TLSClientConfig = c.tls
		}
		c.http = &http.Client{Transport: otelhttp.NewTransport(base)}
	}
	return c
}

// Send posts req to the provider described by cfg.
//
// When cfg.ProbeURL is set, the probe must succeed first; if every probe
// attempt fails the main call is never made and a NetworkError is returned.
// The main call is retried on network errors, timeouts and non-2xx
// statuses, sleeping attempt×RetryBaseDelay in between. After the last
// attempt the error kind reflects the last failure. Cancelling ctx aborts
// the in-flight attempt or backoff and yields Cancelled.
func (c *Client) Send(ctx context.Context, req Request, cfg ProviderConfig) (RawResponse, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return RawResponse{}, err
	}
	endpoint, err := cfg.endpoint()
	if err != nil {
		return RawResponse{}, errkind.NewInvalidConfig(fmt.Sprintf("build endpoint: %v", err))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return RawResponse{}, fmt.Errorf("ai: marshal request: %w", err)
	}

	start := time.Now()

	if cfg.ProbeURL != "" {
		if err := c.probe(ctx, cfg); err != nil {
			return RawResponse{Elapsed: time.Since(start)}, err
		}
	}

	var (
		last    RawResponse
		lastErr error
	)
	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		last, lastErr = c.attempt(ctx, endpoint, body, cfg, attempt)
		last.Attempts = attempt
		last.Elapsed = time.Since(start)
		if lastErr == nil {
			return last, nil
		}

		kind := errkind.KindOf(lastErr)
		if kind == errkind.Cancelled || kind == errkind.InvalidConfig {
			return last, lastErr
		}

		if attempt > cfg.MaxRetries {
			break
		}

		backoff := time.Duration(attempt) * cfg.RetryBaseDelay
		c.logger.Warn("ai: attempt failed, retrying",
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"backoff_ms", backoff.Milliseconds(),
			"error", lastErr,
		)
		if err := c.sleep(ctx, backoff); err != nil {
			last.Elapsed = time.Since(start)
			return last, errkind.NewCancelled(err)
		}
	}

	c.logger.Error("ai: retries exhausted",
		"attempts", last.Attempts,
		"duration_ms", last.Elapsed.Milliseconds(),
		"error", lastErr,
	)
	return last, lastErr
}

// attempt performs one POST with its own deadline.
func (c *Client) attempt(ctx context.Context, endpoint string, body []byte, cfg ProviderConfig, n int) (RawResponse, error) {
	ctx, span := c.tracer.Start(ctx, "ai.attempt", trace.WithAttributes(
		attribute.Int("ai.attempt", n),
		attribute.String("ai.model", cfg.Model),
	))
	defer span.End()

	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return RawResponse{}, errkind.NewInvalidConfig(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return RawResponse{}, c.transportFailure(ctx, span, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return RawResponse{}, c.transportFailure(ctx, span, fmt.Errorf("read response: %w", err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("ai: attempt finished",
		"attempt", n,
		"status", resp.StatusCode,
		"bytes", len(respBytes),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	raw := RawResponse{StatusCode: resp.StatusCode, Body: respBytes}
	if !isSuccess(resp.StatusCode) {
		err := errkind.FromStatus(resp.StatusCode, errorDetail(respBytes))
		span.SetStatus(otelcodes.Error, err.Error())
		return raw, err
	}
	return raw, nil
}

// transportFailure classifies an error that produced no response. If the
// caller's context is done it is a cancellation; a per-attempt timeout or
// connection error is a (retryable) network error.
func (c *Client) transportFailure(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	if ctx.Err() != nil {
		return errkind.NewCancelled(ctx.Err())
	}
	return errkind.NewNetwork(err)
}

// probe checks connectivity before the main call, with the same retry
// budget and backoff as the main call.
func (c *Client) probe(ctx context.Context, cfg ProviderConfig) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		lastErr = c.probeOnce(ctx, cfg)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errkind.NewCancelled(ctx.Err())
		}
		if attempt > cfg.MaxRetries {
			break
		}

		c.logger.Warn("ai: connectivity probe failed, retrying",
			"attempt", attempt,
			"probe_url", cfg.ProbeURL,
			"error", lastErr,
		)
		if err := c.sleep(ctx, time.Duration(attempt)*cfg.RetryBaseDelay); err != nil {
			return errkind.NewCancelled(err)
		}
	}
	return &errkind.Error{Kind: errkind.NetworkError, Detail: "connectivity probe failed", Err: lastErr}
}

func (c *Client) probeOnce(ctx context.Context, cfg ProviderConfig) error {
	ctx, span := c.tracer.Start(ctx, "ai.probe")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, min(probeTimeout, cfg.Timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.ProbeURL, nil)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
