// Package validation holds input rules shared by handlers and services.
package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// PasswordRuleMessage is returned to clients when a new password is too weak.
const PasswordRuleMessage = "Password must be at least 8 characters long, contain 1 uppercase letter, and 1 number."

var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z0-9]{8,}$`)
	usernameRegex   = regexp.MustCompile(`^[\p{L}\p{N}_.]{3,32}$`)
)

var reservedUsernames = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"bazm":     {},
	"harfzaar": {},
	"poets":    {},
	"qaafia":   {},
	"support":  {},
	"swagger":  {},
	"ws":       {},
}

var (
	ErrWeakPassword    = errors.New(PasswordRuleMessage)
	ErrInvalidEmail    = errors.New("Invalid email address")
	ErrInvalidUsername = errors.New("Username must be 3-32 letters, numbers, dots or underscores")
	ErrReservedName    = errors.New("Username is reserved")
)

// ValidatePassword requires at least 8 ASCII letters or digits with one
// uppercase letter and one digit.
func ValidatePassword(password string) error {
	if !passwordCharset.MatchString(password) {
		return ErrWeakPassword
	}
	if !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return ErrWeakPassword
	}
	if !strings.ContainsAny(password, "0123456789") {
		return ErrWeakPassword
	}
	return nil
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateUsername validates username format and reserved names.
// Urdu letters are allowed.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	if _, exists := reservedUsernames[strings.ToLower(username)]; exists {
		return ErrReservedName
	}
	return nil
}

// Field is a named input value for Required.
type Field struct {
	Name  string
	Value string
}

// Required reports the first field whose value is blank, or "" when all are set.
func Required(fields ...Field) string {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			return f.Name
		}
	}
	return ""
}
