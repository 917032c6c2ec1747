package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeJSON decodes the first JSON object or array in a model reply into
// target. Markdown code fences and prose before or after the value are
// ignored.
func DecodeJSON(content string, target any) error {
	text := strings.TrimSpace(unfence(content))
	if text == "" {
		return errors.New("empty payload")
	}
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON value in reply: %s", snippet(text))
	}
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(target); err != nil {
		return fmt.Errorf("decode reply: %w (reply: %s)", err, snippet(text))
	}
	return nil
}

// unfence strips a surrounding ``` block, including its info string.
func unfence(s string) string {
	s = strings.TrimSpace(s)
	body, fenced := strings.CutPrefix(s, "```")
	if !fenced {
		return s
	}
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	body, _, _ = strings.Cut(body, "```")
	return body
}

// snippet collapses whitespace and keeps at most 160 runes for error text.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "<empty>"
	}
	if r := []rune(s); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
