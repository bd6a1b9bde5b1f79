package ai

import (
	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
	"github.com/nyashahama/helpdesk-ai-gateway/internal/event"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ─── OPENAI-COMPATIBLE REQUEST SHAPE ─────────────────────────────────────────

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completion payload. The shape is the same for every
// provider; only Model varies.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Templates resolves the system prompt for an event. *prompts.Store
// satisfies it.
type Templates interface {
	TemplateFor(name event.Name, data event.Data) (string, error)
}

// Build assembles the provider request for a validated event:
//
//  1. one system message with the event's prompt;
//  2. for conversation events, one message per turn in original order,
//     customer → user, agent → assistant;
//  3. for rephrase, one trailing user message with the text to rephrase.
//
// A conversation event that still has no turns, such as a label_suggestion
// whose display id was never resolved, fails with MissingField("turns").
//
// Build is deterministic: identical inputs marshal to identical bytes.
func Build(t Templates, v event.Validated, cfg ProviderConfig) (Request, error) {
	data := v.Data()

	system, err := t.TemplateFor(v.Name(), data)
	if err != nil {
		return Request{}, err
	}

	msgs := make([]Message, 0, len(data.Turns)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: system})

	if v.Name().NeedsConversation() {
		if len(data.Turns) == 0 {
			return Request{}, errkind.NewMissingField("turns")
		}
		for _, turn := range data.Turns {
			msgs = append(msgs, Message{Role: roleFor(turn.Speaker), Content: turn.Text})
		}
	}

	if v.Name() == event.Rephrase {
		msgs = append(msgs, Message{Role: RoleUser, Content: data.Content})
	}

	return Request{Model: cfg.Model, Messages: msgs}, nil
}

func roleFor(s event.Speaker) string {
	if s == event.Agent {
		return RoleAssistant
	}
	return RoleUser
}
