package services

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/contactbook/internal/common"
)

const (
	maxUserNameLen = 50
	minUserNameLen = 3
	maxEmailLen    = 100
	minPasswordLen = 3
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72

	maxNameLen  = 50
	maxPhoneLen = 20
	maxInfoLen  = 500
)

var (
	userNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	UserName string
	Email    string
	Password string
}

// Normalize trims surrounding whitespace from the identifiers.
func (in *RegisterInput) Normalize() {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
}

func (in RegisterInput) Validate() error {
	n := utf8.RuneCountInString(in.UserName)
	switch {
	case n < minUserNameLen || n > maxUserNameLen:
		return common.NewValidationError("username", "must be between 3 and 50 characters")
	case !userNamePattern.MatchString(in.UserName):
		return common.NewValidationError("username", "may contain only letters, digits, '_', '.' and '-'")
	}

	if err := validateEmail(in.Email); err != nil {
		return err
	}

	if len(in.Password) < minPasswordLen || len(in.Password) > maxPasswordLen {
		return common.NewValidationError("password", "must be between 3 and 72 bytes")
	}
	return nil
}

// validateEmail accepts a bare address ("a@b.c"), not a display-name form.
func validateEmail(email string) error {
	if email == "" {
		return common.NewValidationError("email", "is required")
	}
	if len(email) > maxEmailLen {
		return common.NewValidationError("email", "must be at most 100 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return common.NewValidationError("email", "is not a valid email address")
	}
	return nil
}

// ContactInput carries every editable field of a contact. Updates are full
// replacements, so the same shape serves both create and update.
type ContactInput struct {
	Name     string
	Surname  string
	Email    string
	Phone    string
	Birthday time.Time
	Info     *string
}

func (in *ContactInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Birthday = dateOf(in.Birthday)
}

func (in ContactInput) Validate() error {
	return in.validate(time.Now())
}

func (in ContactInput) validate(now time.Time) error {
	if err := requiredMax("name", in.Name, maxNameLen); err != nil {
		return err
	}
	if err := requiredMax("surname", in.Surname, maxNameLen); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if len(in.Phone) > maxPhoneLen || !phonePattern.MatchString(in.Phone) {
		return common.NewValidationError("phone", "is not a valid phone number")
	}
	if in.Birthday.IsZero() {
		return common.NewValidationError("birthday", "is required")
	}
	if dateOf(in.Birthday).After(dateOf(now)) {
		return common.NewValidationError("birthday", "must not be in the future")
	}
	if in.Info != nil && utf8.RuneCountInString(*in.Info) > maxInfoLen {
		return common.NewValidationError("info", "must be at most 500 characters")
	}
	return nil
}

func requiredMax(field, value string, max int) error {
	if value == "" {
		return common.NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(value) > max {
		return common.NewValidationError(field, "is too long")
	}
	return nil
}

// dateOf drops the clock part, keeping the calendar date in UTC.
func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
