package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

// Message types as written by the support application. Activity and
// template messages are never part of a prompt.
const (
	messageIncoming = "incoming"
	messageOutgoing = "outgoing"
)

const conversationIDSQL = `
SELECT id FROM conversations WHERE account_id = $1 AND display_id = $2`

const conversationMessagesSQL = `
SELECT message_type, content
FROM messages
WHERE conversation_id = $1
  AND private = false
  AND message_type = ANY($2)
ORDER BY created_at, id`

// ConversationTurns returns the public customer and agent messages of the
// conversation displayID in chronological order. Incoming messages become
// customer turns, outgoing ones agent turns. Private notes and blank messages
// are skipped. Returns ErrNotFound when the conversation does not exist for
// accountID; an existing conversation with no usable messages yields an
// empty slice.
func (s *Store) ConversationTurns(ctx context.Context, accountID int64, displayID string) ([]event.Turn, error) {
	var turns []event.Turn

	err := s.withReadTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var conversationID int64
		err := tx.QueryRowContext(ctx, conversationIDSQL, accountID, displayID).Scan(&conversationID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("ConversationTurns: get conversation: %w", err)
		}

		rows, err := tx.QueryContext(ctx, conversationMessagesSQL,
			conversationID,
			pq.Array([]string{messageIncoming, messageOutgoing}),
		)
		if err != nil {
			return fmt.Errorf("ConversationTurns: list messages: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				messageType string
				content     sql.NullString
			)
			if err := rows.Scan(&messageType, &content); err != nil {
				return fmt.Errorf("ConversationTurns: scan message: %w", err)
			}
			if turn, ok := toTurn(messageType, content); ok {
				turns = append(turns, turn)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("ConversationTurns: iterate messages: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return turns, nil
}

func toTurn(messageType string, content sql.NullString) (event.Turn, bool) {
	if !content.Valid || strings.TrimSpace(content.String) == "" {
		return event.Turn{}, false
	}
	switch messageType {
	case messageIncoming:
		return event.Turn{Speaker: event.Customer, Text: content.String}, true
	case messageOutgoing:
		return event.Turn{Speaker: event.Agent, Text: content.String}, true
	}
	return event.Turn{}, false
}
