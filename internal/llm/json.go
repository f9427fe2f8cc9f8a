package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?i)```json|```")

// ErrNoJSONObject is returned when a completion holds no JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in content")

// ExtractJSONObject strips markdown code fences from a completion and
// returns the first balanced {...} block, falling back to the span from the
// first '{' to the last '}'. Braces inside JSON strings are ignored while
// balancing.
func ExtractJSONObject(content string) (string, error) {
	clean := strings.TrimSpace(codeFence.ReplaceAllString(content, ""))
	if json.Valid([]byte(clean)) && strings.HasPrefix(clean, "{") {
		return clean, nil
	}

	start := strings.Index(clean, "{")
	if start == -1 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(clean); i++ {
		ch := clean[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return clean[start : i+1], nil
			}
		}
	}

	if end := strings.LastIndex(clean, "}"); end > start {
		return clean[start : end+1], nil
	}
	return "", ErrNoJSONObject
}

// DecodeJSONObject extracts the first JSON object from content and
// unmarshals it into out.
func DecodeJSONObject(content string, out any) error {
	obj, err := ExtractJSONObject(content)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj), out)
}
