package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret123", false},
		{"Short", "abc", false},
		{"Letters Only", "onlyletters", false},
		{"Digits Only", "1234", false},
		{"Exactly Max Length", strings.Repeat("a", 72), false},
		{"Multibyte At Limit", strings.Repeat("é", 36), false},
		{"Too Long", strings.Repeat("a", 73), true},
		{"Multibyte Over Limit", strings.Repeat("é", 37), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Too Long", "a" + emailAt254, true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Missing TLD", "user@example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	t.Parallel()
	valid := []string{"+15551234567", "555-123-4567", "(555) 123 4567", "0712345678"}
	invalid := []string{"", "12345", "phone", "+1 555 CALL NOW", "1234567890123456789012"}

	for _, p := range valid {
		assert.NoError(t, ValidatePhone(p), p)
	}
	for _, p := range invalid {
		assert.Error(t, ValidatePhone(p), p)
	}
}

func TestReferralCode(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateReferralCode("AB12CD34"))
	assert.Error(t, ValidateReferralCode("ab12cd34"))
	assert.Error(t, ValidateReferralCode("AB12CD3"))
	assert.Equal(t, "AB12CD34", NormalizeReferralCode("  ab12cd34 "))
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "jane@example.com", NormalizeUsername("  Jane@Example.COM "))
}

func TestErrors(t *testing.T) {
	t.Parallel()

	var errs Errors
	assert.True(t, errs.Empty())

	errs.Required("name", "  ")
	errs.Required("city", "Paris")
	errs.Check("password", errors.New("too short"))
	errs.Check("phone", nil)
	errs.Add("product_preferences must not be empty")

	assert.False(t, errs.Empty())
	assert.Equal(t, Errors{
		"name is required",
		"password: too short",
		"product_preferences must not be empty",
	}, errs)
}
