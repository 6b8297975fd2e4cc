// Package redact scrubs sensitive fragments out of error text before it
// is persisted to the document store or logged. Failure reasons are
// assembled from wrapped errors that can carry connection strings, API
// keys, and local temp-file paths; none of that belongs in a record the
// producer service shows to users.
package redact

import "regexp"

// Placeholders substituted for matched fragments.
const (
	credentialPlaceholder = "[REDACTED_CREDENTIAL]"
	keyPlaceholder        = "[REDACTED_KEY]"
	pathPlaceholder       = "[REDACTED_PATH]"
)

var replacements = []struct {
	pattern     *regexp.Regexp
	placeholder string
}{
	// Connection URLs with embedded credentials (postgres://user:pw@host).
	{regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^@/\s]+@`), credentialPlaceholder + "@"},
	// API keys and tokens in key=value or key: value form.
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(['"\s:=]+)\S{8,}`), "$1$2" + keyPlaceholder},
	// Local filesystem paths, which leak temp-dir layout.
	{regexp.MustCompile(`(/[\w.-]+){2,}`), pathPlaceholder},
}

// String scrubs sensitive fragments from the input.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range replacements {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error scrubs an error's text. A nil error yields the empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
