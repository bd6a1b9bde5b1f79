package ai

import (
	"context"
	"log/slog"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

// Fallback wraps a Processor. When a call fails because of the provider
// (auth, rate limit, 5xx, malformed body, network) it logs the failure and
// repeats the call against the secondary provider. Validation, configuration
// and cancellation failures are returned unchanged: another provider would
// not fix them.
type Fallback struct {
	primary   Processor
	secondary ProviderConfig
	logger    *slog.Logger
}

// NewFallback returns a Processor that retries provider failures of primary
// against the secondary provider config. If secondary has no base URL or
// credential the wrapper is transparent.
func NewFallback(primary Processor, secondary ProviderConfig, logger *slog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// ProcessEvent tries cfg first and the secondary provider second.
func (f *Fallback) ProcessEvent(ctx context.Context, cfg ProviderConfig, ev event.Event) Result {
	result := f.primary.ProcessEvent(ctx, cfg, ev)
	if result.Success || !result.ErrorKind.ProviderFailure() {
		return result
	}
	if f.secondary.BaseURL == "" || f.secondary.APIKey == "" {
		return result
	}

	f.logger.Warn("ai: primary provider failed, trying secondary",
		"event", string(ev.Name),
		"error_kind", string(result.ErrorKind),
		"primary_model", cfg.Model,
		"secondary_model", f.secondary.Model,
	)

	secondary := f.primary.ProcessEvent(ctx, f.secondary, ev)
	secondary.Attempts += result.Attempts
	secondary.Duration += result.Duration
	return secondary
}
