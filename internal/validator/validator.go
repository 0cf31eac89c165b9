package validator

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"piggybank/internal/models"
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidUsername  = errors.New("username must be 4 to 25 letters, digits, dots, dashes or underscores")
	ErrInvalidPassword  = errors.New("password must be at least 6 characters")
	ErrInvalidName      = errors.New("name must be 1 to 80 characters")
	ErrInvalidFrequency = errors.New("frequency must be one of daily, weekly, biweekly, monthly")
	ErrInvalidPayday    = errors.New("payday must be a weekday index between 0 and 6")
)

const (
	MaxEmailLength = 120
	MaxNameLength  = 80
	MinPassword    = 6
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{4,25}$`)
)

func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength || !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPassword {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateName checks bank and expense names.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 1 || n > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}

func ValidateFrequency(frequency string) error {
	switch frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly:
		return nil
	}
	return ErrInvalidFrequency
}

func ValidatePayday(payday int) error {
	if payday < 0 || payday > 6 {
		return ErrInvalidPayday
	}
	return nil
}

// FieldErrors collects per-field messages so a form can show all of them at
// once.
type FieldErrors map[string]string

func (f FieldErrors) Add(field string, err error) {
	if err != nil {
		if _, exists := f[field]; !exists {
			f[field] = err.Error()
		}
	}
}

func (f FieldErrors) Any() bool {
	return len(f) > 0
}

func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, f[field]))
	}
	return strings.Join(parts, "; ")
}
