package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/icarus-art/icarus/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Unexpected errors are
// logged and reported without detail.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validationErr *shared.ValidationError
	switch {
	case errors.As(err, &validationErr):
		Fail(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, ErrEmptyBody):
		Fail(w, http.StatusBadRequest, "No data provided")
	case errors.Is(err, ErrMalformedBody):
		Fail(w, http.StatusBadRequest, "Invalid JSON payload")
	case errors.Is(err, shared.ErrDuplicateEmail):
		Fail(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, shared.ErrUsernameTaken):
		Fail(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, shared.ErrAuthenticationRequired):
		Fail(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, "You can only change your own content")
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, "Not found")
	default:
		if logger != nil {
			logger.Error("unhandled request error", slog.Any("error", err))
		}
		Fail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// ValidationFailure converts validator output into a ValidationError naming
// the first rejected field.
func ValidationFailure(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return shared.NewValidationError(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return "Invalid " + fe.Field()
	default:
		return "Invalid " + fe.Field()
	}
}
