package shared

import (
	"strconv"
	"strings"
)

// Identity is the caller resolved once per request at the HTTP boundary.
// The zero value is Anonymous.
type Identity struct {
	AccountID int64
}

// Anonymous marks a request without an authenticated account.
var Anonymous = Identity{}

// AuthenticatedAs builds the identity of a signed-in account.
func AuthenticatedAs(accountID int64) Identity {
	return Identity{AccountID: accountID}
}

// Authenticated reports whether an account is bound.
func (i Identity) Authenticated() bool {
	return i.AccountID > 0
}

// ParseSessionUser converts the user binding stored in a session into an
// account id. Empty or malformed bindings yield false.
func ParseSessionUser(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// FormatSessionUser is the inverse of ParseSessionUser.
func FormatSessionUser(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}
