package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
)

// ─── TYPES ───────────────────────────────────────────────────────────────────

// HookStatus is the lifecycle state of an integration hook.
type HookStatus string

const (
	HookEnabled  HookStatus = "enabled"
	HookDisabled HookStatus = "disabled"
)

// Hook is one account's installation of the AI integration.
type Hook struct {
	ID        uuid.UUID
	AccountID int64
	AppID     string
	Status    HookStatus
	Settings  pqtype.NullRawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HookSettings is the JSON document stored in integration_hooks.settings.
// Every field is optional; missing values fall back to process defaults.
type HookSettings struct {
	APIKey          string `json:"api_key"`
	Endpoint        string `json:"endpoint"`
	Model           string `json:"model"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	MaxRetries      *int   `json:"max_retries"`
	LabelSuggestion bool   `json:"label_suggestion"`
}

// Enabled reports whether the hook may serve events.
func (h Hook) Enabled() bool {
	return h.Status == HookEnabled
}

// DecodeSettings parses the hook's JSONB settings. A NULL column decodes to
// the zero HookSettings.
func (h Hook) DecodeSettings() (HookSettings, error) {
	var s HookSettings
	if !h.Settings.Valid || len(h.Settings.RawMessage) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(h.Settings.RawMessage, &s); err != nil {
		return HookSettings{}, fmt.Errorf("store: decode hook %s settings: %w", h.ID, err)
	}
	return s, nil
}

// ProviderConfig overlays the hook's settings on defaults. Only fields the
// hook actually sets replace the default. The result is not validated here;
// the gateway rejects an incomplete config as InvalidConfig.
func (h Hook) ProviderConfig(defaults ai.ProviderConfig) (ai.ProviderConfig, error) {
	s, err := h.DecodeSettings()
	if err != nil {
		return ai.ProviderConfig{}, err
	}
	cfg := defaults
	if s.Endpoint != "" {
		cfg.BaseURL = s.Endpoint
	}
	if s.APIKey != "" {
		cfg.APIKey = s.APIKey
	}
	if s.Model != "" {
		cfg.Model = s.Model
	}
	if s.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(s.TimeoutSeconds) * time.Second
	}
	if s.MaxRetries != nil {
		cfg.MaxRetries = *s.MaxRetries
	}
	return cfg, nil
}

// ─── QUERIES ─────────────────────────────────────────────────────────────────

const getHookSQL = `
SELECT id, account_id, app_id, status, settings, created_at, updated_at
FROM integration_hooks
WHERE account_id = $1 AND id = $2`

// GetHook returns the hook hookID owned by accountID, or ErrNotFound. A hook
// belonging to another account is reported as not found.
func (s *Store) GetHook(ctx context.Context, accountID int64, hookID uuid.UUID) (Hook, error) {
	var h Hook
	err := s.pool.QueryRowContext(ctx, getHookSQL, accountID, hookID).Scan(
		&h.ID,
		&h.AccountID,
		&h.AppID,
		&h.Status,
		&h.Settings,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Hook{}, ErrNotFound
	}
	if err != nil {
		return Hook{}, fmt.Errorf("store: get hook: %w", err)
	}
	return h, nil
}
