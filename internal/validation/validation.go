// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex        = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex        = regexp.MustCompile(`^\+?[0-9 ()\-]+$`)
	referralCodeRegex = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// ValidatePassword enforces bcrypt's 72-byte input limit. Any non-empty password
// within it is accepted.
func ValidatePassword(password string) error {
	if len(password) > 72 {
		return errors.New("password must not exceed 72 bytes")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidatePhone accepts digits with optional leading +, spaces, dashes and parentheses.
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return errors.New("invalid phone number")
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 7 || digits > 15 {
		return errors.New("phone number must have between 7 and 15 digits")
	}
	return nil
}

// ValidateReferralCode checks the 8-character upper-case alphanumeric format.
func ValidateReferralCode(code string) error {
	if !referralCodeRegex.MatchString(code) {
		return errors.New("referral code must be 8 letters or digits")
	}
	return nil
}

// NormalizeUsername trims and lower-cases an email-form username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeReferralCode trims and upper-cases a referral code.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Errors collects field-level messages.
type Errors []string

// Required records "<field> is required" when value is blank.
func (e *Errors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		*e = append(*e, field+" is required")
	}
}

// Check records "<field>: <err>" when err is non-nil.
func (e *Errors) Check(field string, err error) {
	if err != nil {
		*e = append(*e, fmt.Sprintf("%s: %v", field, err))
	}
}

// Add records a free-form message.
func (e *Errors) Add(msg string) {
	*e = append(*e, msg)
}

// Empty reports whether nothing was recorded.
func (e Errors) Empty() bool {
	return len(e) == 0
}
