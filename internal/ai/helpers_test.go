package ai_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// discardLogger returns a *slog.Logger that silently drops all log output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sleepRecorder replaces the backoff sleep so retry tests run instantly while
// still observing the requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// failingTransport fails every round trip without touching the network.
type failingTransport struct {
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("dial tcp 10.0.0.1:443: connect: connection refused")
}

func newTestClient(rec *sleepRecorder, opts ...ai.Option) *ai.Client {
	all := append([]ai.Option{ai.WithSleep(rec.sleep)}, opts...)
	return ai.NewClient(discardLogger(), all...)
}

func providerFor(baseURL string) ai.ProviderConfig {
	return ai.ProviderConfig{
		BaseURL:        baseURL,
		Model:          "deepseek-chat",
		APIKey:         "sk-test-123456789",
		Timeout:        2 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: 10 * time.Millisecond,
	}
}

// stubProcessor returns canned results and counts calls per model.
type stubProcessor struct {
	mu      sync.Mutex
	results map[string]ai.Result
	calls   []string
}

func (s *stubProcessor) ProcessEvent(_ context.Context, cfg ai.ProviderConfig, _ event.Event) ai.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cfg.Model)
	return s.results[cfg.Model]
}
