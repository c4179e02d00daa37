package service

import (
	"encoding/json"
	"errors"
	"strings"
)

// errNoJSONArray is returned when no decodable JSON array can be located in
// a model response. Callers fall through to the keyword heuristic.
var errNoJSONArray = errors.New("no JSON array in response")

// decodeLooseArray decodes a JSON array out of free-form model output into v.
// Chain: strict decode of the whole text, then decode of the substring
// between the first '[' and the last ']'. Model responses routinely wrap the
// array in prose or markdown fences, so the substring pass does most of the
// work in practice.
func decodeLooseArray(content string, v interface{}) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errNoJSONArray
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start == -1 || end == -1 || end < start {
		return errNoJSONArray
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err != nil {
		return errNoJSONArray
	}
	return nil
}
