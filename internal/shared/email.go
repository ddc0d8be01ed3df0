package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxEmailLength bounds stored email addresses.
const MaxEmailLength = 120

// NormalizeEmail trims surrounding whitespace and lower-cases the address so
// that case variants land on the same unique index entry.
func NormalizeEmail(email string) string {
	// Casers keep internal state and must not be shared between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}
