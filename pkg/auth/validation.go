package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/tendant/simple-accounts/pkg/domain"
)

const maxEmailLength = 254 // RFC 5321

// Username: 3-30 characters, alphanumeric/underscore/hyphen, must start
// with an alphanumeric character.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,29}$`)

// ValidateEmail validates an email address for format and length.
func ValidateEmail(email string) error {
	if email == "" {
		return domain.ErrInvalidEmail
	}
	if len(email) > maxEmailLength {
		return domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(NormalizeEmail(email)); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
// Lookup by email is case-insensitive everywhere, so stores persist the
// normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername validates a username against the format rules.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return domain.ErrInvalidUsername
	}
	return nil
}
