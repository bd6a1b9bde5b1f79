package ai_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/ai"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/prompts"
)

func mustValidate(t *testing.T, ev event.Event) event.Validated {
	t.Helper()
	v, err := event.Validate(ev)
	require.NoError(t, err)
	return v
}

func TestBuild_Rephrase(t *testing.T) {
	store := prompts.MustNew()
	v := mustValidate(t, event.Event{
		Name: event.Rephrase,
		Data: event.Data{Content: "Your order is delayed", Tone: "friendly"},
	})

	req, err := ai.Build(store, v, ai.ProviderConfig{Model: "deepseek-chat"})
	require.NoError(t, err)

	system, _ := store.TemplateFor(event.Rephrase, event.Data{Tone: "friendly"})
	assert.Equal(t, "deepseek-chat", req.Model)
	assert.Equal(t, []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: "Your order is delayed"},
	}, req.Messages)
	assert.Contains(t, req.Messages[0].Content, "friendly")
}

func TestBuild_ConversationPreservesOrderAndRoles(t *testing.T) {
	store := prompts.MustNew()
	turns := []event.Turn{
		{Speaker: event.Customer, Text: "Hello"},
		{Speaker: event.Agent, Text: "Hi, how can I help?"},
		{Speaker: event.Customer, Text: "My parcel never arrived"},
		{Speaker: event.Customer, Text: "Order 1234"},
		{Speaker: event.Agent, Text: "Let me check"},
	}

	for _, name := range []event.Name{event.Summarize, event.ReplySuggestion, event.LabelSuggestion} {
		t.Run(string(name), func(t *testing.T) {
			v := mustValidate(t, event.Event{Name: name, Data: event.Data{Turns: turns}})
			req, err := ai.Build(store, v, ai.ProviderConfig{Model: "m"})
			require.NoError(t, err)

			require.Len(t, req.Messages, len(turns)+1)
			assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
			for i, turn := range turns {
				want := ai.RoleUser
				if turn.Speaker == event.Agent {
					want = ai.RoleAssistant
				}
				assert.Equal(t, want, req.Messages[i+1].Role)
				assert.Equal(t, turn.Text, req.Messages[i+1].Content)
			}
		})
	}
}

func TestBuild_SummarizeScenario(t *testing.T) {
	store := prompts.MustNew()
	v := mustValidate(t, event.Event{Name: event.Summarize, Data: event.Data{Turns: []event.Turn{
		{Speaker: event.Customer, Text: "Hello"},
		{Speaker: event.Agent, Text: "Hi, how can I help?"},
	}}})

	req, err := ai.Build(store, v, ai.ProviderConfig{Model: "deepseek-chat"})
	require.NoError(t, err)

	system, _ := store.TemplateFor(event.Summarize, event.Data{})
	assert.Equal(t, []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: "Hello"},
		{Role: ai.RoleAssistant, Content: "Hi, how can I help?"},
	}, req.Messages)
}

func TestBuild_IsByteIdentical(t *testing.T) {
	store := prompts.MustNew()
	ev := event.Event{Name: event.ReplySuggestion, Data: event.Data{Turns: []event.Turn{
		{Speaker: event.Customer, Text: "hello agent"},
		{Speaker: event.Agent, Text: "hello customer"},
	}}}
	cfg := ai.ProviderConfig{Model: "deepseek-pro"}

	first, err := ai.Build(store, mustValidate(t, ev), cfg)
	require.NoError(t, err)
	second, err := ai.Build(store, mustValidate(t, ev), cfg)
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestBuild_UnresolvedLabelSuggestionIsRejected(t *testing.T) {
	v := mustValidate(t, event.Event{Name: event.LabelSuggestion, Data: event.Data{ConversationDisplayID: "9"}})
	_, err := ai.Build(prompts.MustNew(), v, ai.ProviderConfig{Model: "m"})

	var e *errkind.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errkind.MissingField, e.Kind)
	assert.Equal(t, "turns", e.Field)
}

func TestBuild_ZeroValidatedIsRejected(t *testing.T) {
	_, err := ai.Build(prompts.MustNew(), event.Validated{}, ai.ProviderConfig{})
	assert.Equal(t, errkind.UnknownEventKind, errkind.KindOf(err))
}
