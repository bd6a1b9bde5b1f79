// Package prompts holds the system prompt for every supported event. The
// defaults are embedded in the binary; a deployment can override any of them
// with a YAML file whose entries take priority over the embedded text.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

//go:embed defaults/*.txt
var defaultFS embed.FS

// toneMarker is replaced in the rephrase template by the tone clause, or
// removed when no tone was given.
const toneMarker = "{{tone}}"

var defaultFiles = map[event.Name]string{
	event.Rephrase:        "defaults/rephrase.txt",
	event.Summarize:       "defaults/summary.txt",
	event.ReplySuggestion: "defaults/reply.txt",
	event.LabelSuggestion: "defaults/label.txt",
}

// Store resolves the system prompt for an event. It is immutable after
// construction and LoadOverrides, and safe for concurrent use.
type Store struct {
	templates map[event.Name]string
}

// New returns a Store populated with the embedded default prompts.
func New() (*Store, error) {
	s := &Store{templates: make(map[event.Name]string, len(defaultFiles))}
	for name, path := range defaultFiles {
		b, err := defaultFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("prompts: read embedded %s: %w", path, err)
		}
		s.templates[name] = strings.TrimSpace(string(b))
	}
	return s, nil
}

// MustNew is New for package-level initialisation and tests. The embedded
// files are compiled in, so a failure here is a build defect.
func MustNew() *Store {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

// LoadOverrides reads a YAML mapping of event name to prompt text and lets it
// take priority over the embedded defaults:
//
//	summarize: |
//	  Summarise the conversation for a tier-2 engineer ...
//	rephrase: "Rewrite the reply{{tone}}. Keep the user's language."
//
// Unknown event names and empty prompts are rejected so a typo cannot
// silently leave a default in place. Call it before the Store is shared.
func (s *Store) LoadOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("prompts: read overrides: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("prompts: parse overrides %s: %w", path, err)
	}

	for key, text := range overrides {
		name := event.Name(key)
		if !name.Known() {
			return fmt.Errorf("prompts: override for unknown event %q", key)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return fmt.Errorf("prompts: override for %q is empty", key)
		}
		s.templates[name] = text
	}
	return nil
}

// TemplateFor returns the system prompt for the named event. Only rephrase
// depends on the data (its optional tone); the other prompts are fixed.
func (s *Store) TemplateFor(name event.Name, data event.Data) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", errkind.NewUnknownEventKind(string(name))
	}
	if name != event.Rephrase {
		return tmpl, nil
	}

	clause := ""
	if tone := strings.TrimSpace(data.Tone); tone != "" {
		clause = " to a more " + tone + " tone"
	}
	return strings.ReplaceAll(tmpl, toneMarker, clause), nil
}
