package ai

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
)

// maxDetailLen bounds diagnostic snippets of provider bodies.
const maxDetailLen = 200

// extractor pulls the generated text out of one known response shape.
type extractor struct {
	name    string
	extract func(body []byte) (string, bool)
}

// extractors are tried in order; the first match wins. The order is part of
// the contract: a body carrying both "message" and "choices" yields
// "message".
var extractors = []extractor{
	{name: "body", extract: directString},
	{name: "message", extract: stringAt("message")},
	{name: "content", extract: stringAt("content")},
	{name: "choices", extract: stringAt("choices.0.message.content")},
	{name: "content_blocks", extract: stringAt(`content.#(type=="text").text`)},
}

// Normalize converts the final provider response into a Result. 2xx bodies
// go through the extractors; other statuses are classified with the shared
// status table.
func Normalize(raw RawResponse) Result {
	var r Result
	switch {
	case raw.StatusCode == 0:
		r = failed(errkind.NewNetwork(errors.New("no response received")))
	case !isSuccess(raw.StatusCode):
		r = failed(errkind.FromStatus(raw.StatusCode, errorDetail(raw.Body)))
	default:
		r = extract(raw.Body)
	}
	r.Attempts = raw.Attempts
	r.Duration = raw.Elapsed
	return r
}

func extract(body []byte) Result {
	for _, ex := range extractors {
		if msg, ok := ex.extract(body); ok {
			return succeeded(msg)
		}
	}
	return failed(errkind.NewMalformed("no known shape in response: " + truncate(string(body))))
}

// directString matches a body that is itself the text: either a JSON string
// literal or a plain-text body. Broken JSON objects are not plain text.
func directString(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", false
	}
	if gjson.ValidBytes(trimmed) {
		res := gjson.ParseBytes(trimmed)
		if res.Type != gjson.String {
			return "", false
		}
		return nonBlank(res.Str)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return "", false
	}
	return nonBlank(string(trimmed))
}

func stringAt(path string) func([]byte) (string, bool) {
	return func(body []byte) (string, bool) {
		if !gjson.ValidBytes(body) {
			return "", false
		}
		res := gjson.GetBytes(body, path)
		if res.Type != gjson.String {
			return "", false
		}
		return nonBlank(res.Str)
	}
}

func nonBlank(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// errorDetail picks the most useful diagnostic out of an error body: the
// OpenAI-style error.message, a bare error string, a message field, or a
// truncated copy of the body.
func errorDetail(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message"} {
			if res := gjson.GetBytes(body, path); res.Type == gjson.String && res.Str != "" {
				return truncate(res.Str)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
