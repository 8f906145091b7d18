package lead

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// EmailValidation is the outcome of ValidateEmail.
type EmailValidation struct {
	IsValid         bool
	NormalizedEmail string // trimmed + lowercased; empty only when the input was empty
	Reason          string
}

// ValidateEmail normalizes and checks a single address. No network or DNS lookups.
// PRE: none
// POST: NormalizedEmail is set whenever raw has non-space content
// INVARIANT: ValidateEmail(v.NormalizedEmail).NormalizedEmail == v.NormalizedEmail
func ValidateEmail(raw string) EmailValidation {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return EmailValidation{Reason: ReasonEmptyEmail}
	}
	if !emailPattern.MatchString(clean) {
		return EmailValidation{NormalizedEmail: clean, Reason: ReasonInvalidEmail}
	}
	return EmailValidation{IsValid: true, NormalizedEmail: clean}
}
