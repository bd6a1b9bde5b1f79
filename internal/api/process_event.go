package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/store"
)

// statusClientClosedRequest is the non-standard status used when the caller
// went away before the provider answered.
const statusClientClosedRequest = 499

// ─── POST /api/v1/accounts/:accountID/integrations/hooks/:hookID/process_event
//
// Runs one AI event through the gateway using the hook's provider settings.
// Conversation events may carry their turns inline or reference the
// conversation by display id.

type processEventRequest struct {
	Event event.Event `json:"event"`
}

type processEventResponse struct {
	Message string   `json:"message"`
	Labels  []string `json:"labels,omitempty"`
}

type processEventError struct {
	Error     string       `json:"error"`
	ErrorKind errkind.Kind `json:"error_kind"`
}

func (s *Server) handleProcessEvent(w http.ResponseWriter, r *http.Request) {
	account := accountID(r)
	hookID, err := uuid.Parse(chi.URLParam(r, "hookID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid hook_id")
		return
	}

	var req processEventRequest
	if !decode(w, r, &req) {
		return
	}

	hook, err := s.hooks.GetHook(r.Context(), account, hookID)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "hook not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get hook %s: %w", hookID, err))
		return
	}
	if !hook.Enabled() {
		respondErr(w, http.StatusConflict, "hook is disabled")
		return
	}

	settings, err := hook.DecodeSettings()
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	if req.Event.Name == event.LabelSuggestion && !settings.LabelSuggestion {
		respondErr(w, http.StatusConflict, "label suggestion is disabled for this hook")
		return
	}

	cfg, err := hook.ProviderConfig(s.cfg.Provider)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	ev, err := store.ResolveConversation(r.Context(), s.conversations, account, req.Event)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	result := s.processor.ProcessEvent(r.Context(), cfg, ev)
	if !result.Success {
		s.logger.Warn("process_event failed",
			"hook_id", hookID,
			"event", string(ev.Name),
			"error_kind", string(result.ErrorKind),
			"attempts", result.Attempts,
			"request_id", middleware.GetReqID(r.Context()),
		)
		status := statusForKind(result.ErrorKind)
		if result.ErrorKind == errkind.Cancelled && errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		respond(w, status, processEventError{
			Error:     result.RawDetail,
			ErrorKind: result.ErrorKind,
		})
		return
	}

	resp := processEventResponse{Message: result.Message}
	if ev.Name == event.LabelSuggestion {
		resp.Labels = ai.ParseLabels(result.Message)
	}
	respond(w, http.StatusOK, resp)
}

// statusForKind maps a gateway failure to the HTTP status returned to the
// support application.
func statusForKind(k errkind.Kind) int {
	switch k {
	case errkind.MissingField, errkind.UnknownEventKind:
		return http.StatusUnprocessableEntity
	case errkind.InvalidConfig:
		return http.StatusInternalServerError
	case errkind.RateLimited:
		return http.StatusTooManyRequests
	case errkind.Cancelled:
		return statusClientClosedRequest
	default:
		return http.StatusBadGateway
	}
}

// ─── GET /api/v1/accounts/:accountID/integrations/status ─────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
