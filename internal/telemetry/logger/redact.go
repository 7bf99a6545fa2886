// Package logger provides structured logging for data-scribbler.
package logger

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeff-tyrrill/data-scribbler/pkg/token"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// docIDPrefix marks a fingerprinted document id.
const docIDPrefix = "doc#"

// redactSensitive masks document ids and values under sensitive keys.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return redactString(a.Key, a.Value.String())
	case slog.KindAny:
		// Typed ids such as domain.DocumentID arrive as KindAny.
		if s, ok := a.Value.Any().(fmt.Stringer); ok {
			if str := s.String(); looksLikeDocumentID(str) {
				return slog.String(a.Key, MaskDocumentID(str))
			}
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	return a
}

func redactString(key, value string) slog.Attr {
	if looksLikeDocumentID(value) {
		return slog.String(key, MaskDocumentID(value))
	}
	if value != "" && IsSensitiveKey(key) {
		return slog.String(key, redactedValue)
	}
	if strings.Contains(value, "/") {
		return slog.String(key, RedactString(value))
	}
	return slog.String(key, value)
}

// MaskDocumentID replaces a document id with a stable fingerprint.
func MaskDocumentID(id string) string {
	return docIDPrefix + token.Fingerprint(id)
}

// RedactString masks every document id embedded in value, including the
// aa/bb/rest split form used by /data/ paths.
func RedactString(value string) string {
	parts := strings.Split(value, "/")
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		if i+2 < len(parts) && len(parts[i]) == 2 && len(parts[i+1]) == 2 {
			if joined := parts[i] + parts[i+1] + parts[i+2]; looksLikeDocumentID(joined) {
				out = append(out, MaskDocumentID(joined))
				i += 2
				continue
			}
		}
		if looksLikeDocumentID(parts[i]) {
			out = append(out, MaskDocumentID(parts[i]))
			continue
		}
		out = append(out, parts[i])
	}
	return strings.Join(out, "/")
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

func looksLikeDocumentID(s string) bool {
	if len(s) != token.DefaultLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
