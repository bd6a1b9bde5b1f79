package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

// TurnSource loads the turns of a conversation. *Store implements it; the
// HTTP and gRPC layers accept the interface so tests can inject a stub.
type TurnSource interface {
	ConversationTurns(ctx context.Context, accountID int64, displayID string) ([]event.Turn, error)
}

// ResolveConversation fills ev.Data.Turns from src when ev is a conversation
// event that references a conversation by display id and carries no turns
// of its own. Any other event is returned unchanged. ErrNotFound is passed
// through unwrapped.
func ResolveConversation(ctx context.Context, src TurnSource, accountID int64, ev event.Event) (event.Event, error) {
	if src == nil ||
		!ev.Name.NeedsConversation() ||
		len(ev.Data.Turns) > 0 ||
		ev.Data.ConversationDisplayID == "" {
		return ev, nil
	}

	turns, err := src.ConversationTurns(ctx, accountID, ev.Data.ConversationDisplayID)
	if errors.Is(err, ErrNotFound) {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, fmt.Errorf("store: resolve conversation %s: %w", ev.Data.ConversationDisplayID, err)
	}
	ev.Data.Turns = turns
	return ev, nil
}
