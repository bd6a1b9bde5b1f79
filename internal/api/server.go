// Package api implements the HTTP layer of the helpdesk AI gateway.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/store"
)

// defaultHandlerTimeout leaves room for a full retry sequence against a slow
// provider.
const defaultHandlerTimeout = 2 * time.Minute

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// HandlerTimeout bounds a single HTTP request. Default 2m.
	HandlerTimeout time.Duration

	// Provider is the process-wide provider default. A hook's settings are
	// overlaid on it per request.
	Provider ai.ProviderConfig
}

// HookStore is the subset of *store.Store the API reads hooks from.
type HookStore interface {
	GetHook(ctx context.Context, accountID int64, hookID uuid.UUID) (store.Hook, error)
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// hooks resolves the integration hook named in the URL.
	hooks HookStore

	// conversations loads turns for events that only reference a
	// conversation. May be nil, in which case events must carry turns.
	conversations store.TurnSource

	// processor answers events. In production a *ai.Gateway, optionally
	// wrapped in *ai.Fallback.
	processor ai.Processor

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(
	hooks HookStore,
	conversations store.TurnSource,
	processor ai.Processor,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaultHandlerTimeout
	}
	s := &Server{
		hooks:         hooks,
		conversations: conversations,
		processor:     processor,
		cfg:           cfg,
		logger:        logger,
	}

	return otelhttp.NewHandler(s.routes(), "gateway.http")
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.HandlerTimeout))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api/v1/accounts/{accountID}/integrations", func(r chi.Router) {
		r.Use(requireAccountID)

		// Cheap target for the provider connectivity probe.
		r.Get("/status", s.handleStatus)

		r.Post("/hooks/{hookID}/process_event", s.handleProcessEvent)
	})

	return r
}
