package prompts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/prompts"
)

func TestTemplateFor_Rephrase(t *testing.T) {
	s := prompts.MustNew()

	withTone, err := s.TemplateFor(event.Rephrase, event.Data{Tone: "friendly"})
	require.NoError(t, err)
	assert.Equal(t,
		"You are a helpful support agent. Please rephrase the following response to a more friendly tone. "+
			"Ensure that the reply should be in user language.",
		withTone)

	noTone, err := s.TemplateFor(event.Rephrase, event.Data{})
	require.NoError(t, err)
	assert.Equal(t,
		"You are a helpful support agent. Please rephrase the following response. "+
			"Ensure that the reply should be in user language.",
		noTone)
}

func TestTemplateFor_FixedPrompts(t *testing.T) {
	s := prompts.MustNew()

	for _, name := range []event.Name{event.Summarize, event.ReplySuggestion, event.LabelSuggestion} {
		t.Run(string(name), func(t *testing.T) {
			a, err := s.TemplateFor(name, event.Data{Tone: "formal"})
			require.NoError(t, err)
			b, err := s.TemplateFor(name, event.Data{})
			require.NoError(t, err)

			assert.NotEmpty(t, a)
			assert.Equal(t, a, b, "fixed prompts must not depend on event data")
		})
	}

	label, _ := s.TemplateFor(event.LabelSuggestion, event.Data{})
	assert.Contains(t, label, "comma-separated")
}

func TestTemplateFor_UnknownEvent(t *testing.T) {
	_, err := prompts.MustNew().TemplateFor("translate", event.Data{})
	assert.Equal(t, errkind.UnknownEventKind, errkind.KindOf(err))
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"summarize: Summarise for an engineer.\n"+
			"rephrase: \"Rewrite this{{tone}}.\"\n"), 0o600))

	s := prompts.MustNew()
	require.NoError(t, s.LoadOverrides(path))

	got, err := s.TemplateFor(event.Summarize, event.Data{})
	require.NoError(t, err)
	assert.Equal(t, "Summarise for an engineer.", got)

	got, err = s.TemplateFor(event.Rephrase, event.Data{Tone: "formal"})
	require.NoError(t, err)
	assert.Equal(t, "Rewrite this to a more formal tone.", got)

	// Events without an override keep their default.
	reply, err := s.TemplateFor(event.ReplySuggestion, event.Data{})
	require.NoError(t, err)
	assert.Contains(t, reply, "support agent")
}

func TestLoadOverrides_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown event": "translate: Translate this.\n",
		"empty prompt":  "summarize: \"  \"\n",
		"not a map":     "- summarize\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prompts.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			assert.Error(t, prompts.MustNew().LoadOverrides(path))
		})
	}

	assert.Error(t, prompts.MustNew().LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml")))
}
