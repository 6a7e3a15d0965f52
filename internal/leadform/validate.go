// Package leadform drives the e-book download form: field validation, the
// submission state machine and the delayed download on the confirmation view.
package leadform

import (
	"regexp"
	"strings"
)

// Field names, as used by the form inputs and the API.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
)

// User-facing validation messages.
const (
	MsgRequired     = "Champ obligatoire"
	MsgInvalidEmail = "Veuillez entrer une adresse e-mail valide"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form is the lead form as entered by the visitor.
type Form struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	ConsentMailing bool
}

// FieldErrors maps a field name to its message. Empty means valid.
type FieldErrors map[string]string

// Valid reports whether there are no field errors.
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Validate checks the required fields and the e-mail shape. Phone and
// consent are never checked.
func Validate(f Form) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(f.FirstName) == "" {
		errs[FieldFirstName] = MsgRequired
	}
	if strings.TrimSpace(f.LastName) == "" {
		errs[FieldLastName] = MsgRequired
	}
	switch {
	case strings.TrimSpace(f.Email) == "":
		errs[FieldEmail] = MsgRequired
	case !emailPattern.MatchString(f.Email):
		errs[FieldEmail] = MsgInvalidEmail
	}
	return errs
}
