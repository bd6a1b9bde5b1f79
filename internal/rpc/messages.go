package rpc

import (
	"time"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

// Hook carries provider settings inline. Zero fields fall back to the
// server's defaults.
type Hook struct {
	Endpoint       string `json:"endpoint,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	Model          string `json:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	MaxRetries     *int   `json:"max_retries,omitempty"`
	ProbeURL       string `json:"probe_url,omitempty"`
}

// Request is the decoded form of a ProcessEvent request.
type Request struct {
	Hook Hook `json:"hook"`

	// AccountID scopes conversation lookups. When zero, conversation events
	// must carry their turns.
	AccountID int64 `json:"account_id,omitempty"`

	Event event.Event `json:"event"`
}

// providerConfig overlays h on defaults.
func (h Hook) providerConfig(defaults ai.ProviderConfig) ai.ProviderConfig {
	cfg := defaults
	if h.Endpoint != "" {
		cfg.BaseURL = h.Endpoint
	}
	if h.APIKey != "" {
		cfg.APIKey = h.APIKey
	}
	if h.Model != "" {
		cfg.Model = h.Model
	}
	if h.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(h.TimeoutSeconds) * time.Second
	}
	if h.MaxRetries != nil {
		cfg.MaxRetries = *h.MaxRetries
	}
	if h.ProbeURL != "" {
		cfg.ProbeURL = h.ProbeURL
	}
	return cfg
}
