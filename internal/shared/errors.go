package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. It is returned for unknown
	// emails, inactive accounts and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates the email is already present in the target table.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUsernameTaken indicates another account already uses the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAuthenticationRequired is returned by guards when no account is bound to the session.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrForbidden is returned when an account acts on content it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation marks malformed input. Use ValidationError for field details.
	ErrValidation = errors.New("validation failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError describes a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
