package logger

import (
	"log/slog"
	"strings"
)

// pemMarker starts every PEM block. Service account private keys are the
// only PEM material the server handles.
const pemMarker = "-----BEGIN"

// Key fragments that mark an attribute as secret.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"private_key",
	"api_key",
	"api_token",
	"x-api-token",
	"credential",
	"authorization",
	"bearer",
}

// Keys that match a pattern above but carry no secret material.
var publicKeys = map[string]bool{
	"token_used": true,
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks PEM values wherever they appear and fully redacts
// values logged under a sensitive key.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, redactedValue)
		}
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the first and last three characters of a secret.
// Values of nine characters or fewer are replaced entirely.
func maskValue(value string) string {
	if len(value) <= 9 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString masks a secret for display, for example an API token echoed
// by the config dump. PEM blocks are replaced entirely.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	if IsSensitiveValue(value) {
		return redactedValue
	}
	return maskValue(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	if publicKeys[keyLower] {
		return false
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value contains PEM key material.
func IsSensitiveValue(value string) bool {
	return strings.Contains(value, pemMarker)
}
