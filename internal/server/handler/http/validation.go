package http

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const (
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes  = 72
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxDueAtLen       = 50
)

func validateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return errors.New("Username must be 3-32 letters, numbers, _ or -")
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLen || len(password) > maxPasswordBytes {
		return errors.New("Password must be 6-72 characters")
	}
	return nil
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n < 1 || n > maxTitleLen {
		return errors.New("Title must be 1-200 characters")
	}
	return nil
}

func validateDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > maxDescriptionLen {
		return errors.New("Description must be at most 2000 characters")
	}
	return nil
}

func validateDueAt(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > maxDueAtLen {
		return errors.New("Due date must be at most 50 characters")
	}
	return nil
}
