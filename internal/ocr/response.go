package ocr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeResponse parses the model's answer into raw fields. Models often wrap
// their JSON in markdown code fences; those are stripped first.
func DecodeResponse(content string) (RawFields, error) {
	cleaned := StripCodeFence(content)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var fields RawFields
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v (response: %q)", ErrMalformedResponse, err, preview(content))
	}
	if fields == nil {
		// literal "null"
		return nil, fmt.Errorf("%w: expected a JSON object (response: %q)", ErrMalformedResponse, preview(content))
	}
	return fields, nil
}

// StripCodeFence removes a leading ```json or ``` marker and a trailing ```
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(s, "```json"); ok {
		s = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(s, "```"); ok {
		s = strings.TrimSpace(rest)
	}
	return s
}
