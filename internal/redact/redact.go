// Package redact strips credential material from strings before they reach
// the logs. Database URLs embed passwords and every API request carries a
// bearer token, so error text derived from either passes through here first.
package redact

import "regexp"

// TokenPlaceholder replaces anything shaped like a JWT.
const TokenPlaceholder = "[REDACTED_TOKEN]"

// CredentialPlaceholder replaces the userinfo part of connection URLs.
const CredentialPlaceholder = "[REDACTED]"

var (
	connURLRegex = regexp.MustCompile(`(?i)(postgres(?:ql)?|mysql|mongodb)://[^@\s]+@`)
	jwtRegex     = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
)

// String returns the input with connection-URL credentials and bearer tokens
// replaced by placeholders.
func String(input string) string {
	if input == "" {
		return input
	}

	out := connURLRegex.ReplaceAllString(input, "$1://"+CredentialPlaceholder+"@")
	out = jwtRegex.ReplaceAllString(out, TokenPlaceholder)
	return out
}

// Error returns the redacted Error() text, or the empty string for nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
