package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

// Gateway is the single entry point collaborators call. Each ProcessEvent is
// one linear pass:
//
//	Validating → Building → Sending (probe + retries) → Normalizing → Done
//
// Any stage failure jumps straight to Done with a classified error kind.
type Gateway struct {
	templates Templates
	client    *Client
	logger    *slog.Logger
}

// NewGateway wires the template store and transport client into a Gateway.
func NewGateway(templates Templates, client *Client, logger *slog.Logger) *Gateway {
	return &Gateway{
		templates: templates,
		client:    client,
		logger:    logger,
	}
}

// ProcessEvent answers ev using the provider in cfg. It never returns a
// partial result and never panics on bad input; failures are data.
func (g *Gateway) ProcessEvent(ctx context.Context, cfg ProviderConfig, ev event.Event) Result {
	start := time.Now()
	log := g.logger.With(
		"call_id", uuid.NewString(),
		"event", string(ev.Name),
		"model", cfg.Model,
	)

	// ── Validating ───────────────────────────────────────────────────────────
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return g.done(log, start, failed(err))
	}
	validated, err := event.Validate(ev)
	if err != nil {
		return g.done(log, start, failed(err))
	}

	// ── Building ─────────────────────────────────────────────────────────────
	req, err := Build(g.templates, validated, cfg)
	if err != nil {
		return g.done(log, start, failed(err))
	}
	log.Debug("ai: request built",
		"messages", len(req.Messages),
		"api_key", MaskKey(cfg.APIKey),
	)

	// ── Sending ──────────────────────────────────────────────────────────────
	raw, err := g.client.Send(ctx, req, cfg)
	if err != nil {
		r := failed(err)
		r.Attempts = raw.Attempts
		return g.done(log, start, r)
	}

	// ── Normalizing ──────────────────────────────────────────────────────────
	return g.done(log, start, Normalize(raw))
}

func (g *Gateway) done(log *slog.Logger, start time.Time, r Result) Result {
	r.Duration = time.Since(start)
	if r.Success {
		log.Info("ai: event processed",
			"attempts", r.Attempts,
			"duration_ms", r.Duration.Milliseconds(),
		)
		return r
	}
	log.Warn("ai: event failed",
		"error_kind", string(r.ErrorKind),
		"detail", r.RawDetail,
		"attempts", r.Attempts,
		"duration_ms", r.Duration.Milliseconds(),
	)
	return r
}
