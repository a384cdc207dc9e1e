// Package observability provides logging utilities with sensitive data redaction.
package observability

import (
	"regexp"
	"strings"
	"sync"
)

// Redactor handles sensitive data masking in logs. In addition to static
// patterns it can be primed with live secret payloads, so a payload that
// leaks into a log line is masked even when it matches no generic pattern.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*redactPattern
	payloads map[string]int // payload -> prime count
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
	name        string
}

// NewRedactor creates a new redactor with default patterns.
func NewRedactor() *Redactor {
	r := &Redactor{payloads: make(map[string]int)}
	r.addDefaultPatterns()
	return r
}

func (r *Redactor) addDefaultPatterns() {
	// Vault and cloud tokens
	r.AddPattern(`hvs\.[a-zA-Z0-9_-]{20,}`, "[REDACTED_VAULT_TOKEN]", "vault_token")
	r.AddPattern(`AKIA[A-Z0-9]{16}`, "[REDACTED_AWS_KEY_ID]", "aws_key_id")
	r.AddPattern(`[a-f0-9]{32,64}`, "[REDACTED_HEX_SECRET]", "hex_secret")

	// Bearer tokens and auth headers
	r.AddPattern(`Bearer\s+[a-zA-Z0-9\-_\.]+`, "Bearer [REDACTED]", "bearer_token")
	r.AddPattern(`Authorization:\s*[^\s]+`, "Authorization: [REDACTED]", "auth_header")

	// key=value forms with sensitive key names
	r.AddPattern(`(?i)(password|passwd|secret|token|api_key|apikey)=[^\s,;]+`, "$1=[REDACTED]", "sensitive_kv")
}

// AddPattern adds a custom redaction pattern.
func (r *Redactor) AddPattern(pattern, replacement, name string) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return // Skip invalid patterns
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, &redactPattern{
		regex:       regex,
		replacement: replacement,
		name:        name,
	})
}

// Prime registers live secret payloads for exact-match masking. Whitespace
// is trimmed; blank payloads are ignored. Call Unprime with the same values
// once the owning session ends.
func (r *Redactor) Prime(payloads ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range payloads {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r.payloads[p]++
	}
}

// Unprime releases payloads registered by Prime. A payload stays masked
// while any session still holds it.
func (r *Redactor) Unprime(payloads ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range payloads {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if r.payloads[p] <= 1 {
			delete(r.payloads, p)
		} else {
			r.payloads[p]--
		}
	}
}

// Redact applies payload masking and all redaction patterns to the input.
func (r *Redactor) Redact(input string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := input
	for p := range r.payloads {
		result = strings.ReplaceAll(result, p, "[REDACTED_SECRET]")
	}
	for _, p := range r.patterns {
		result = p.regex.ReplaceAllString(result, p.replacement)
	}
	return result
}

// RedactMap redacts sensitive values in a map.
func (r *Redactor) RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = r.redactValue(k, v)
	}
	return result
}

func (r *Redactor) redactValue(key string, value any) any {
	// Check if key itself suggests sensitive data
	lowerKey := strings.ToLower(key)
	sensitiveKeys := []string{"key", "token", "secret", "password", "auth", "credential", "payload", "notes"}
	for _, sk := range sensitiveKeys {
		if strings.Contains(lowerKey, sk) {
			return "[REDACTED]"
		}
	}

	switch v := value.(type) {
	case string:
		return r.Redact(v)
	case map[string]any:
		return r.RedactMap(v)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = r.redactValue("", item)
		}
		return result
	default:
		return value
	}
}
