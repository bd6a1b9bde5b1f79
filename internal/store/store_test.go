package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestDB returns a migrated Store backed by DATABASE_URL. Skips if the env
// var is not set so the suite still passes without a Postgres instance.
func openTestDB(t *testing.T) (*sql.DB, *store.Store) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	require.NoError(t, pool.PingContext(context.Background()))

	st := store.New(pool)
	require.NoError(t, st.Migrate(context.Background()))
	return pool, st
}

// testAccount returns an account id unlikely to collide with other runs.
func testAccount() int64 {
	return time.Now().UnixNano()
}

func seedHook(t *testing.T, pool *sql.DB, accountID int64, status store.HookStatus, settings string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := pool.ExecContext(ctx,
		`INSERT INTO integration_hooks (id, account_id, app_id, status, settings) VALUES ($1, $2, 'openai', $3, $4)`,
		id, accountID, string(status), sql.NullString{String: settings, Valid: settings != ""},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.ExecContext(ctx, "DELETE FROM integration_hooks WHERE id=$1", id) })
	return id
}

type seedMessage struct {
	kind    string
	content string
	private bool
}

func seedConversation(t *testing.T, pool *sql.DB, accountID int64, displayID string, msgs []seedMessage) {
	t.Helper()
	ctx := context.Background()
	var convID int64
	err := pool.QueryRowContext(ctx,
		`INSERT INTO conversations (account_id, display_id) VALUES ($1, $2) RETURNING id`,
		accountID, displayID,
	).Scan(&convID)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.ExecContext(ctx, "DELETE FROM conversations WHERE id=$1", convID) })

	base := time.Now().Add(-time.Hour)
	for i, m := range msgs {
		_, err := pool.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, message_type, content, private, created_at) VALUES ($1, $2, $3, $4, $5)`,
			convID, m.kind, m.content, m.private, base.Add(time.Duration(i)*time.Second),
		)
		require.NoError(t, err, fmt.Sprintf("seed message %d", i))
	}
}

// ─── GetHook ──────────────────────────────────────────────────────────────────

func TestGetHook_Found(t *testing.T) {
	pool, st := openTestDB(t)
	account := testAccount()
	id := seedHook(t, pool, account, store.HookEnabled, `{"api_key":"sk-db-123456789","model":"gpt-4o"}`)

	h, err := st.GetHook(context.Background(), account, id)
	require.NoError(t, err)
	assert.Equal(t, id, h.ID)
	assert.Equal(t, account, h.AccountID)
	assert.True(t, h.Enabled())

	s, err := h.DecodeSettings()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", s.Model)
}

func TestGetHook_OtherAccountIsNotFound(t *testing.T) {
	pool, st := openTestDB(t)
	account := testAccount()
	id := seedHook(t, pool, account, store.HookEnabled, "")

	_, err := st.GetHook(context.Background(), account+1, id)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGetHook_NullSettings(t *testing.T) {
	pool, st := openTestDB(t)
	account := testAccount()
	id := seedHook(t, pool, account, store.HookDisabled, "")

	h, err := st.GetHook(context.Background(), account, id)
	require.NoError(t, err)
	assert.False(t, h.Settings.Valid)
	assert.False(t, h.Enabled())
}

// ─── ConversationTurns ────────────────────────────────────────────────────────

func TestConversationTurns_MapsAndFilters(t *testing.T) {
	pool, st := openTestDB(t)
	account := testAccount()
	seedConversation(t, pool, account, "42", []seedMessage{
		{kind: "incoming", content: "Hello"},
		{kind: "activity", content: "Conversation assigned"},
		{kind: "outgoing", content: "Hi, how can I help?"},
		{kind: "outgoing", content: "internal note", private: true},
		{kind: "incoming", content: "   "},
		{kind: "incoming", content: "My parcel is late"},
	})

	turns, err := st.ConversationTurns(context.Background(), account, "42")
	require.NoError(t, err)
	assert.Equal(t, []event.Turn{
		{Speaker: event.Customer, Text: "Hello"},
		{Speaker: event.Agent, Text: "Hi, how can I help?"},
		{Speaker: event.Customer, Text: "My parcel is late"},
	}, turns)
}

func TestConversationTurns_NotFound(t *testing.T) {
	_, st := openTestDB(t)
	_, err := st.ConversationTurns(context.Background(), testAccount(), "does-not-exist")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestConversationTurns_EmptyConversation(t *testing.T) {
	pool, st := openTestDB(t)
	account := testAccount()
	seedConversation(t, pool, account, "7", nil)

	turns, err := st.ConversationTurns(context.Background(), account, "7")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
