// Package sanitize neutralizes unsafe string content in inbound requests
// before any handler runs. It covers three independent bags: JSON body
// fields, query parameters and URL path segments.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Sanitizer applies an XSS-safe strip transform to string values, with
// additional email normalization for fields whose key names an email. The
// transform is idempotent: sanitizing already-sanitized output is a no-op.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	// StrictPolicy strips every HTML element and escapes what remains,
	// preserving the visible text content.
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean strips executable markup from s. Input is NFKC-normalized first so
// compatibility lookalikes collapse before the markup check.
func (s *Sanitizer) Clean(value string) string {
	return s.policy.Sanitize(norm.NFKC.String(value))
}

// Field cleans value, and additionally normalizes it as an email address when
// the field key contains "email". Keying on the field name rather than a
// declared type is the platform's convention; see DESIGN.md.
func (s *Sanitizer) Field(key, value string) string {
	value = s.Clean(value)
	if strings.Contains(strings.ToLower(key), "email") {
		value = NormalizeEmail(value)
	}
	return value
}

// Value walks a decoded JSON value, cleaning every string leaf. The key of
// the nearest enclosing object field drives email normalization. Non-string
// values pass through unmodified.
func (s *Sanitizer) Value(key string, v any) any {
	switch val := v.(type) {
	case string:
		return s.Field(key, val)
	case map[string]any:
		for k, child := range val {
			val[k] = s.Value(k, child)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = s.Value(key, child)
		}
		return val
	default:
		return v
	}
}

// NormalizeEmail lowercases an address and canonicalizes known provider
// aliasing: googlemail.com maps to gmail.com and gmail sub-addresses
// ("+tag") are dropped. Dots in the local part are preserved.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	local, domain := email[:at], email[at+1:]
	if domain == "googlemail.com" {
		domain = "gmail.com"
	}
	if domain == "gmail.com" {
		if plus := strings.Index(local, "+"); plus >= 0 {
			local = local[:plus]
		}
	}

	return local + "@" + domain
}
