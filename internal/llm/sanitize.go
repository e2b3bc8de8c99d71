package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StripCodeFences removes a markdown code fence wrapper from model output.
// Gemini routinely wraps the JSON object in ```json ... ``` despite being
// told not to.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// SanitizeDocument normalizes a decoded vision/conversation response so it
// can validate against the stricter local schema:
//   - drops nulls and empty strings
//   - coerces numeric strings ("-2.00", "160000") to numbers for the known
//     numeric fields
//   - coerces whole floats to integers where the schema wants integers
//
// Returns the cleaned object, reserialized, plus the list of touched keys.
func SanitizeDocument(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	touched := sanitizeMap(m)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, touched, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, touched, nil
}

var numericKeys = map[string]struct{}{
	"sphere": {}, "cylinder": {}, "axis": {}, "add": {},
	"right": {}, "left": {},
	"confidence": {}, "delivery_days": {},
	"total_amount": {}, "payment_amount": {}, "amount": {},
	"quantity": {},
}

func sanitizeMap(m map[string]any) []string {
	var touched []string
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			touched = append(touched, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				delete(m, k)
				touched = append(touched, k+"(empty)")
				continue
			}
			if _, numeric := numericKeys[k]; numeric {
				if f, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64); err == nil {
					m[k] = f
					touched = append(touched, k+"(number)")
					continue
				}
				delete(m, k)
				touched = append(touched, k+"(not numeric)")
				continue
			}
			m[k] = s
		case map[string]any:
			touched = append(touched, sanitizeMap(t)...)
			if len(t) == 0 {
				delete(m, k)
				touched = append(touched, k+"(empty object)")
			}
		case []any:
			for _, el := range t {
				if sub, ok := el.(map[string]any); ok {
					touched = append(touched, sanitizeMap(sub)...)
				}
			}
		}
	}
	return touched
}
