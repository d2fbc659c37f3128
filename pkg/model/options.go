package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOptions marks an options payload that could not be decoded into
// a usable option list. Callers on the render path treat it as "no options";
// the builder and loader surface it to the administrator.
var ErrMalformedOptions = errors.New("model: malformed options payload")

// EncodeOptions serializes an option list as a JSON string array. Blank and
// duplicate entries are dropped; an empty result encodes as "".
func EncodeOptions(options []string) (string, error) {
	clean := dedupeOptions(options)
	if len(clean) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("model: encode options: %w", err)
	}
	return string(raw), nil
}

// DecodeOptions parses a serialized options payload into an ordered list of
// distinct, non-empty labels. The canonical encoding is a JSON string array;
// newline- or comma-delimited text is accepted as a legacy fallback.
//
// Decode failures return an empty list together with an error wrapping
// ErrMalformedOptions, so render-path callers can soft-fail while authoring
// surfaces report the problem.
func DecodeOptions(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOptions, err)
		}
		clean := dedupeOptions(list)
		if len(clean) == 0 {
			return nil, fmt.Errorf("%w: no usable entries", ErrMalformedOptions)
		}
		return clean, nil
	}

	sep := ","
	if strings.Contains(trimmed, "\n") {
		sep = "\n"
	}
	clean := dedupeOptions(strings.Split(trimmed, sep))
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: no usable entries", ErrMalformedOptions)
	}
	return clean, nil
}

func dedupeOptions(options []string) []string {
	if len(options) == 0 {
		return nil
	}
	out := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		label := strings.TrimSpace(option)
		if label == "" {
			continue
		}
		if _, exists := seen[label]; exists {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
