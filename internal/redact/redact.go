// Package redact strips obvious secrets from trace payloads before they
// leave the machine. The patterns are deliberately conservative: missing a
// secret is recoverable, mangling real content is not.
package redact

import (
	"encoding/json"
	"regexp"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

var rules = []rule{
	{regexp.MustCompile(`(?i)sk-lf-[a-zA-Z0-9-]{20,}`), "sk-lf-[REDACTED]"},
	{regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`), "sk-[REDACTED]"},
	{regexp.MustCompile(`(?i)Bearer [a-zA-Z0-9._-]{20,}`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)token["']?\s*[:=]\s*["']?[a-zA-Z0-9._-]{20,}`), "token: [REDACTED]"},
	{regexp.MustCompile(`(?i)password["']?\s*[:=]\s*["']?[^\s"']{8,}`), "password: [REDACTED]"},
	{regexp.MustCompile(`(?i)api[_-]?key["']?\s*[:=]\s*["']?[a-zA-Z0-9._-]{16,}`), "api_key: [REDACTED]"},
}

// Redactor applies secret redaction to strings and JSON values. A disabled
// redactor passes everything through untouched.
type Redactor struct {
	enabled bool
}

func New(enabled bool) *Redactor {
	return &Redactor{enabled: enabled}
}

// Text redacts secret-shaped substrings from s.
func (r *Redactor) Text(s string) string {
	if !r.enabled || s == "" {
		return s
	}
	for _, ru := range rules {
		s = ru.re.ReplaceAllString(s, ru.repl)
	}
	return s
}

// JSON redacts every string value inside an arbitrary JSON document,
// recursing through objects and arrays. Input that does not parse is
// returned unchanged.
func (r *Redactor) JSON(raw json.RawMessage) json.RawMessage {
	if !r.enabled || len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(r.value(v))
	if err != nil {
		return raw
	}
	return out
}

func (r *Redactor) value(v any) any {
	switch t := v.(type) {
	case string:
		return r.Text(t)
	case map[string]any:
		for k, e := range t {
			t[k] = r.value(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = r.value(e)
		}
		return t
	default:
		return v
	}
}
