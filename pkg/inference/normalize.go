package inference

import (
	"encoding/json"
)

// Streaming fragments arrive in several shapes depending on the model and
// response mode. Each extractor probes one known shape; they are tried in
// priority order and the first non-empty match wins. Unrecognized shapes
// normalize to "no text", never to an error.
type extractor func(map[string]any) (string, bool)

var textExtractors = []extractor{
	deltaText,
	completionText,
	converseOutputText,
}

// ExtractText returns the plain text payload of one raw streaming fragment,
// or false if the fragment carries no text (metadata-only fragments, control
// events, malformed JSON).
func ExtractText(fragment []byte) (string, bool) {
	var m map[string]any
	if err := json.Unmarshal(fragment, &m); err != nil {
		return "", false
	}
	for _, extract := range textExtractors {
		if text, ok := extract(m); ok && text != "" {
			return text, true
		}
	}
	return "", false
}

// messages-style: { "delta": { "text": "..." } }
func deltaText(m map[string]any) (string, bool) {
	delta, ok := m["delta"].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := delta["text"].(string)
	return text, ok
}

// legacy completions: { "completion": "..." }
func completionText(m map[string]any) (string, bool) {
	text, ok := m["completion"].(string)
	return text, ok
}

// converse-style: { "output": { "message": { "content": [ { "text": "..." } ] } } }
func converseOutputText(m map[string]any) (string, bool) {
	output, ok := m["output"].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := output["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := msg["content"].([]any)
	if !ok || len(content) == 0 {
		return "", false
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := first["text"].(string)
	return text, ok
}
