// Package email holds small helpers for working with account email
// addresses.
package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address. Account lookups are always
// case-insensitive on email, so every store write and query goes through
// this first.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// DeriveDisplayName builds a human-readable name from the local part of an
// address, for accounts created on first external-identity login when the
// provider profile carries no name.
func DeriveDisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User"
	}

	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
