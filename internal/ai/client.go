// Package ai turns support-application events into chat-completion calls
// against an interchangeable LLM provider and normalises whatever comes back
// into a single Result.
//
// The pipeline is: validate (event package) → build the provider request →
// send it with probe and retry → extract the generated text or classify the
// failure. Gateway runs it; everything else in the package is one stage.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

const (
	DefaultPath           = "/chat/completions"
	DefaultTimeout        = 30 * time.Second
	DefaultRetryBaseDelay = time.Second
)

// ProviderConfig describes one provider for one call. It is owned by the
// caller, passed by value and never stored by this package.
type ProviderConfig struct {
	// BaseURL is the provider API root, e.g. "https://api.deepseek.com/v1".
	BaseURL string

	// Path is appended to BaseURL. Default "/chat/completions".
	Path string

	// Model is sent verbatim as the request's model id.
	Model string

	// APIKey is sent as a bearer token. Required: there is no fallback
	// credential.
	APIKey string

	// Timeout bounds each attempt individually, not the whole retry sequence.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryBaseDelay is multiplied by the attempt number between attempts.
	RetryBaseDelay time.Duration

	// ProbeURL, when set, is fetched with GET before the main call to check
	// connectivity.
	ProbeURL string
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return c
}

func (c ProviderConfig) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errkind.NewInvalidConfig("provider base URL is not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errkind.NewInvalidConfig("provider API key is not configured")
	}
	if c.MaxRetries < 0 {
		return errkind.NewInvalidConfig(fmt.Sprintf("max retries must not be negative, got %d", c.MaxRetries))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errkind.NewInvalidConfig(fmt.Sprintf("provider base URL %q is not an http(s) URL", c.BaseURL))
	}
	return nil
}

func (c ProviderConfig) endpoint() (string, error) {
	return url.JoinPath(c.BaseURL, c.Path)
}

// Result is the only value that crosses the gateway boundary. Message is set
// iff Success; ErrorKind is set iff !Success. Attempts and Duration are
// advisory.
type Result struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message,omitempty"`
	ErrorKind errkind.Kind  `json:"error_kind,omitempty"`
	RawDetail string        `json:"raw_detail,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Duration  time.Duration `json:"-"`
}

func succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

func failed(err error) Result {
	r := Result{ErrorKind: errkind.KindOf(err)}
	var e *errkind.Error
	switch {
	case errors.As(err, &e) && e.Detail != "":
		r.RawDetail = e.Detail
	case err != nil:
		r.RawDetail = err.Error()
	}
	return r
}

// Processor is implemented by anything that can answer an event for a
// provider config. Gateway is the real one; Fallback decorates it. HTTP and
// gRPC handlers depend on this interface so tests can inject a stub.
//
// Implementations must be safe to call concurrently and must never return a
// half-filled Result.
type Processor interface {
	ProcessEvent(ctx context.Context, cfg ProviderConfig, ev event.Event) Result
}

// MaskKey shortens a credential for logs: first and last four characters.
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
