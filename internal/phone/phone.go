// Package phone formats phone numbers returned by search APIs.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion = "BR"
	countryCode   = "55"
	minDigits     = 10
)

// FormatE164 returns raw in E.164 form, or "" when it cannot be turned into
// a usable number. Numbers without a country code are assumed Brazilian.
func FormatE164(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if number, err := phonenumbers.Parse(trimmed, defaultRegion); err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	// Fall back to digit-based formatting for numbers the metadata rejects.
	digits := Digits(trimmed)
	digits = strings.TrimPrefix(digits, countryCode)
	if len(digits) < minDigits {
		return ""
	}
	return "+" + countryCode + digits
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
