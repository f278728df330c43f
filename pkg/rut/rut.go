// Package rut normalizes and validates Chilean RUT identifiers.
//
// A RUT is a numeric body plus a modulo-11 check digit, written
// "<digits>-<dv>" where dv is 0-9 or K. The normalized form is the canonical
// identity and ownership key across the gateway: accounts hold at most one,
// and business records reference their owner by it.
package rut

import (
	"regexp"
	"strings"
)

var wellFormed = regexp.MustCompile(`^\d+-[0-9K]$`)

// Normalize strips dots and whitespace, uppercases, and ensures the
// "<body>-<dv>" shape by splitting the last character off as the check digit
// when no dash is present. It is total: any input yields a string, empty
// input yields "". Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	cleaned := strings.ReplaceAll(raw, ".", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	cleaned = strings.ToUpper(cleaned)
	if cleaned == "" {
		return ""
	}
	if !strings.Contains(cleaned, "-") && len(cleaned) >= 2 {
		return cleaned[:len(cleaned)-1] + "-" + cleaned[len(cleaned)-1:]
	}
	return cleaned
}

// IsWellFormed reports whether id already has the normalized
// "<digits>-<dv>" shape. It does not check the check digit.
func IsWellFormed(id string) bool {
	return wellFormed.MatchString(id)
}

// ComputeCheckDigit runs the modulo-11 algorithm over a digit string,
// scanning right to left with multipliers cycling 2..7. Returns "0" when the
// remainder complement is 11 and "K" when it is 10.
//
// The caller is expected to pass digits only; any non-digit rune contributes
// a garbage weight and the result will simply fail comparison downstream.
func ComputeCheckDigit(digits string) string {
	sum := 0
	factor := 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * factor
		if factor == 7 {
			factor = 2
		} else {
			factor++
		}
	}
	m := 11 - (sum % 11)
	switch m {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return string(rune('0' + m))
	}
}

// IsValid normalizes id, checks the shape, and recomputes the check digit
// from the body. Malformed input returns false; IsValid never panics.
func IsValid(id string) bool {
	normalized := Normalize(id)
	if !IsWellFormed(normalized) {
		return false
	}
	body, dv, _ := strings.Cut(normalized, "-")
	return ComputeCheckDigit(body) == dv
}
