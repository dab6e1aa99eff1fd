package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail trims and lowercases an address before it is stored or compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a syntactically valid address with a dotted domain.
func ValidEmail(email string) bool {
	if err := validate.Var(email, "required,email"); err != nil {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && len(domain)-dot-1 >= 2
}

// StrongPassword requires 8+ characters with at least one ASCII uppercase letter
// and one character outside [A-Za-z0-9]. Non-ASCII letters count as special.
func StrongPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var upper, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
		default:
			special = true
		}
	}
	return upper && special
}
