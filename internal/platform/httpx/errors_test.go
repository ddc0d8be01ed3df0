package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icarus-art/icarus/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", shared.NewValidationError("theme", "Invalid theme"), http.StatusBadRequest, "Invalid theme"},
		{"empty body", ErrEmptyBody, http.StatusBadRequest, "No data provided"},
		{"malformed body", fmt.Errorf("%w: unexpected EOF", ErrMalformedBody), http.StatusBadRequest, "Invalid JSON payload"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "You can only change your own content"},
		{"duplicate", fmt.Errorf("create: %w", shared.ErrDuplicateEmail), http.StatusConflict, "Email already registered"},
		{"username", shared.ErrUsernameTaken, http.StatusConflict, "Username already taken"},
		{"credentials", shared.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"auth required", shared.ErrAuthenticationRequired, http.StatusUnauthorized, "Authentication required"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, "Not found"},
		{"unexpected", errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, nil, tc.err)
			assert.Equal(t, tc.status, rr.Code)

			var body Envelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.message, body.Error)
		})
	}
}

func TestValidationFailureNamesField(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
	}
	err := ValidationFailure(validator.New().Struct(form{Email: "nope"}))

	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Email", vErr.Field)
	assert.Equal(t, "Invalid email address", vErr.Message)
}

func TestDecodeJSONClassifiesBodies(t *testing.T) {
	var target struct {
		Email string `json:"email"`
	}
	decode := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return DecodeJSON(req, &target)
	}

	assert.ErrorIs(t, decode(""), ErrEmptyBody)
	assert.ErrorIs(t, decode(`{"email": `), ErrMalformedBody)
	assert.ErrorIs(t, decode(`{"email": 42}`), ErrMalformedBody)
	require.NoError(t, decode(`{"email": "ada@example.com"}`))
	assert.Equal(t, "ada@example.com", target.Email)
}
