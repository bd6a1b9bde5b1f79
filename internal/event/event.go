// Package event models the abstract AI requests a support application can
// make (rephrase a draft, summarise a conversation, suggest a reply, suggest
// labels) and validates that each carries the data its prompt needs.
//
// It is dependency-free apart from errkind and performs no I/O.
package event

import (
	"fmt"
	"strings"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
)

// Name identifies the kind of artifact requested.
type Name string

const (
	Rephrase        Name = "rephrase"
	Summarize       Name = "summarize"
	ReplySuggestion Name = "reply_suggestion"
	LabelSuggestion Name = "label_suggestion"
)

// Names lists every supported event in a stable order.
var Names = []Name{Rephrase, Summarize, ReplySuggestion, LabelSuggestion}

// Known reports whether n is one of the supported events.
func (n Name) Known() bool {
	switch n {
	case Rephrase, Summarize, ReplySuggestion, LabelSuggestion:
		return true
	}
	return false
}

// NeedsConversation reports whether the event works on conversation history
// rather than on a single piece of free text.
func (n Name) NeedsConversation() bool {
	return n == Summarize || n == ReplySuggestion || n == LabelSuggestion
}

// Speaker is who wrote a conversation turn.
type Speaker string

const (
	Customer Speaker = "customer"
	Agent    Speaker = "agent"
)

// Turn is one message of a conversation, in the order it was exchanged.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Data is the event payload. Which fields are required depends on the event
// name; see Validate.
type Data struct {
	// Content is the free text to rephrase.
	Content string `json:"content,omitempty"`

	// Tone optionally qualifies a rephrase ("friendly", "formal", ...).
	Tone string `json:"tone,omitempty"`

	// ConversationDisplayID references the conversation the event is about.
	// Collaborators use it to resolve Turns before calling the gateway.
	ConversationDisplayID string `json:"conversation_display_id,omitempty"`

	// Turns is the conversation history, oldest first.
	Turns []Turn `json:"turns,omitempty"`
}

// Event is a request for an AI-generated artifact.
type Event struct {
	Name Name `json:"name"`
	Data Data `json:"data"`
}

// Validated is an Event that passed Validate. The zero value is not valid;
// only Validate constructs one.
type Validated struct {
	ev Event
}

// Name returns the validated event's name.
func (v Validated) Name() Name { return v.ev.Name }

// Data returns a copy of the validated payload. The turn slice is cloned so
// callers cannot mutate the validated event.
func (v Validated) Data() Data {
	d := v.ev.Data
	d.Turns = append([]Turn(nil), v.ev.Data.Turns...)
	return d
}

// Validate checks that ev names a supported event and carries every field its
// template needs. It is a pure function of its input.
func Validate(ev Event) (Validated, error) {
	if !ev.Name.Known() {
		return Validated{}, errkind.NewUnknownEventKind(string(ev.Name))
	}

	d := ev.Data
	switch ev.Name {
	case Rephrase:
		if strings.TrimSpace(d.Content) == "" {
			return Validated{}, errkind.NewMissingField("content")
		}
	case Summarize, ReplySuggestion:
		if len(d.Turns) == 0 {
			return Validated{}, errkind.NewMissingField("turns")
		}
	case LabelSuggestion:
		if strings.TrimSpace(d.ConversationDisplayID) == "" && len(d.Turns) == 0 {
			return Validated{}, errkind.NewMissingField("conversation_display_id")
		}
	}

	var turns []Turn
	if ev.Name.NeedsConversation() {
		if err := validateTurns(d.Turns); err != nil {
			return Validated{}, err
		}
		turns = append(turns, d.Turns...)
	}

	return Validated{ev: Event{Name: ev.Name, Data: Data{
		Content:               d.Content,
		Tone:                  strings.TrimSpace(d.Tone),
		ConversationDisplayID: d.ConversationDisplayID,
		Turns:                 turns,
	}}}, nil
}

func validateTurns(turns []Turn) error {
	for i, t := range turns {
		if t.Speaker != Customer && t.Speaker != Agent {
			return errkind.NewMissingField(fmt.Sprintf("turns[%d].speaker", i))
		}
		if strings.TrimSpace(t.Text) == "" {
			return errkind.NewMissingField(fmt.Sprintf("turns[%d].text", i))
		}
	}
	return nil
}
