package reminder

import "errors"

// Validation errors. They are returned wrapped with context; match with errors.Is.
var (
	ErrMissingField      = errors.New("please fill both fields")
	ErrParse             = errors.New("not a number")
	ErrInvalidInterval   = errors.New("interval must be a positive number of minutes")
	ErrInvalidTimeFormat = errors.New("time must be HH:MM with hour 0-23 and minute 0-59")
)

// Lookup errors.
var ErrNotFound = errors.New("reminder not found")

// IsValidation reports whether err came from validating user input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidTimeFormat)
}
