package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateSlug enforces the URL-safe organization slug format:
// lowercase alphanumerics separated by single hyphens, 3-50 chars.
func ValidateSlug(slug string) error {
	if len(slug) < 3 || len(slug) > 50 {
		return errors.New("slug must be between 3 and 50 characters")
	}
	if !slugRe.MatchString(slug) {
		return errors.New("slug must contain only lowercase letters, digits and hyphens")
	}
	return nil
}

// NormalizeEmail lowercases an email for the case-insensitive comparisons
// used by the invitation guards.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
