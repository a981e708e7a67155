package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is returned when a model reply contains no JSON object.
var ErrNoJSON = errors.New("no JSON object found")

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(\\{.*?\\})\\s*```")

// ExtractJSON returns the JSON object embedded in a model reply: the first
// fenced ```json block, otherwise the span from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start < 0 || end <= start {
		return "", ErrNoJSON
	}

	return text[start : end+1], nil
}

// DecodeJSONBlock extracts the JSON object from text and unmarshals it into v.
func DecodeJSONBlock(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode JSON block: %w", err)
	}

	return nil
}

// Truncate cuts s to at most max bytes on a rune boundary, appending a marker
// that states how much was dropped.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return fmt.Sprintf("%s\n...[truncated %d bytes]", s[:cut], len(s)-cut)
}
