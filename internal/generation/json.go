package generation

import (
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when model output contains no balanced
// JSON object.
var ErrNoJSONObject = errors.New("no valid JSON object found in text")

// extractFirstJSONBlock scans text for the first balanced {...} block
// using brace matching. Models sometimes wrap JSON in prose or repeat
// it; only the first complete object is returned.
func extractFirstJSONBlock(text string) (string, error) {
	depth := 0
	start := -1

	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", ErrNoJSONObject
}

// stripMarkdownFence unwraps a ```json ... ``` fenced block if present.
// Gemini in particular tends to fence its JSON output.
func stripMarkdownFence(text string) string {
	idx := strings.Index(text, "```json")
	if idx < 0 {
		return text
	}
	rest := text[idx+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return text
	}
	return strings.TrimSpace(rest[:end])
}
