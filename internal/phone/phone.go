// Package phone normalizes booking contact numbers to E.164.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// IsPhoneNumber reports whether value looks like a dialable phone number.
// Email addresses and strings containing letters are rejected outright so a
// contact field holding an email is never mistaken for a vanity number.
func IsPhoneNumber(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsRune(value, '@') || containsLetter(value) {
		return false
	}
	parsed, err := phonenumbers.Parse(value, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(parsed)
}

// NormalizePhone converts value to E.164 (+15551234567). It returns the
// empty string when value is not a possible phone number.
func NormalizePhone(value string) string {
	if !IsPhoneNumber(value) {
		return ""
	}
	parsed, err := phonenumbers.Parse(strings.TrimSpace(value), defaultRegion)
	if err != nil {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func containsLetter(value string) bool {
	for _, r := range value {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
