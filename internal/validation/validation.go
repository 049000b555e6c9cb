// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field length limits shared by forms and the schema.
const (
	MaxTitleLen       = 200
	MaxBoardTitleLen  = 100
	MaxDescriptionLen = 200
	MaxNicknameLen    = 20
	MaxNameLen        = 150
	MaxCommentLen     = 10000
	MaxContentLen     = 50000
)

var (
	digitRegex    = regexp.MustCompile(`[0-9]`)
	specialRegex  = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	boardCodeRe   = regexp.MustCompile(`^[a-z0-9-]{2,20}$`)
)

var reservedBoardCodes = map[string]struct{}{
	"comment": {},
	"write":   {},
	"admin":   {},
	"metrics": {},
	"health":  {},
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters long")
	}

	// prevent unreasonable inputs
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	hasUpper, hasLower := false, false
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}

	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}

	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}

	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}

	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}

	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}

	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	return nil
}

// ValidateNickname allows an empty nickname; the username is used instead.
func ValidateNickname(nickname string) error {
	if utf8.RuneCountInString(nickname) > MaxNicknameLen {
		return fmt.Errorf("nickname must not exceed %d characters", MaxNicknameLen)
	}
	return nil
}

// ValidateBoardCode validates board code format and reserved names.
func ValidateBoardCode(code string) error {
	if !boardCodeRe.MatchString(code) {
		return fmt.Errorf("code must be 2-20 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(code, "-") || strings.HasSuffix(code, "-") {
		return fmt.Errorf("code cannot start or end with a hyphen")
	}

	if _, exists := reservedBoardCodes[code]; exists {
		return fmt.Errorf("code is reserved")
	}

	return nil
}

// FieldErrors collects per-field messages for a submitted form.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Check records err for field when err is non-nil.
func (f FieldErrors) Check(field string, err error) {
	if err != nil {
		f.Add(field, err.Error())
	}
}

// Required records a message when value is blank.
func (f FieldErrors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.Add(field, "This field is required.")
	}
}

// MaxLen records a message when value exceeds max characters.
func (f FieldErrors) MaxLen(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		f.Add(field, fmt.Sprintf("Ensure this value has at most %d characters.", max))
	}
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}
