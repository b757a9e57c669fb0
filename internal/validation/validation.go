// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
	PasswordMinLength = 8
	// PasswordMaxLength is the bcrypt input ceiling in bytes.
	PasswordMaxLength = 72

	TitleMaxLength   = 300
	SummaryMaxLength = 500
	ContentMaxLength = 50000
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < UsernameMinLength {
		return fmt.Errorf("username must be at least %d characters long", UsernameMinLength)
	}
	if len(username) > UsernameMaxLength {
		return fmt.Errorf("username must not exceed %d characters", UsernameMaxLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidatePassword checks the password length in bytes.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return fmt.Errorf("password must not exceed %d bytes", PasswordMaxLength)
	}
	return nil
}

// ValidatePostFields checks title, summary and content of a post.
func ValidatePostFields(title, summary, content string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return fmt.Errorf("title must not exceed %d characters", TitleMaxLength)
	}
	if utf8.RuneCountInString(summary) > SummaryMaxLength {
		return fmt.Errorf("summary must not exceed %d characters", SummaryMaxLength)
	}
	if utf8.RuneCountInString(content) > ContentMaxLength {
		return fmt.Errorf("content must not exceed %d characters", ContentMaxLength)
	}
	return nil
}
