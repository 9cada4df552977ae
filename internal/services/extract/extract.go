// Package extract recovers the JSON document from free-form model output.
//
// Models are asked for bare JSON but sometimes wrap it in a markdown code
// fence or surround it with prose. Extract strips a leading fence, tries a
// direct parse, and falls back to the span from the first "{" to the last "}".
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/perfumepal/blender/internal/metrics"
)

const (
	fence = "```"

	// maxRawLen bounds the raw text kept on a ParseError for logging.
	maxRawLen = 500
)

// ErrNoJSON is the cause reported when no candidate text could be found at all.
var ErrNoJSON = errors.New("no JSON object found")

// ParseError is returned when neither the direct parse nor the brace
// fallback produced valid JSON.
type ParseError struct {
	// Raw is the model output, truncated to 500 runes.
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(raw string, err error) *ParseError {
	return &ParseError{Raw: truncateRunes(raw, maxRawLen), Err: err}
}

// truncateRunes cuts s after n runes without splitting a multi-byte rune.
func truncateRunes(s string, n int) string {
	offset := 0
	for i := 0; i < n && offset < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return s[:offset]
}

// Extract returns the JSON document contained in raw.
func Extract(raw string) (json.RawMessage, error) {
	text := stripFence(strings.TrimSpace(raw))

	err := parse(text)
	if err == nil {
		return json.RawMessage(text), nil
	}

	// Greedy on purpose: first "{" through the last "}".
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, newParseError(raw, err)
	}

	candidate := text[start : end+1]
	if err := parse(candidate); err != nil {
		return nil, newParseError(raw, err)
	}

	metrics.ExtractFallbackTotal.Add(context.Background(), 1)
	return json.RawMessage(candidate), nil
}

// stripFence drops the first and last lines of fenced text, then a leading
// "json" language tag.
func stripFence(text string) string {
	if !strings.HasPrefix(text, fence) {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return ""
	}
	text = strings.Join(lines[1:len(lines)-1], "\n")
	if strings.HasPrefix(text, "json") {
		text = strings.TrimSpace(text[len("json"):])
	}
	return text
}

func parse(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNoJSON
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
