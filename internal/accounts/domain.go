package accounts

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Theme is one of the visual presentation modes an account can select.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	ThemeEarth Theme = "earth"

	// DefaultTheme applies when neither the caller nor configuration picks one.
	DefaultTheme = ThemeEarth
)

// ParseTheme validates a user-supplied theme identifier.
func ParseTheme(value string) (Theme, bool) {
	switch t := Theme(strings.TrimSpace(value)); t {
	case ThemeDark, ThemeLight, ThemeEarth:
		return t, true
	default:
		return "", false
	}
}

// Account is a registered identity and credential record.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Username     string
	Bio          string
	Phone        string
	Theme        Theme
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// DisplayName prefers the name, then the username, then the email local part.
func (a *Account) DisplayName() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Username != "":
		return a.Username
	default:
		return localPart(a.Email)
	}
}

// Initials returns the upper-cased first letter of the display name.
func (a *Account) Initials() string {
	r, _ := utf8.DecodeRuneInString(a.DisplayName())
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// Handle returns the public @handle.
func (a *Account) Handle() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return "@" + localPart(a.Email)
}

// View is the JSON view-model of an account returned to its owner.
type View struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	Name        *string `json:"name"`
	Username    *string `json:"username"`
	Bio         *string `json:"bio"`
	Theme       Theme   `json:"theme"`
	DisplayName string  `json:"display_name"`
	Initials    string  `json:"initials"`
	Handle      string  `json:"handle"`
	CreatedAt   string  `json:"created_at"`
}

// View builds the view-model.
func (a *Account) View() View {
	return View{
		ID:          a.ID,
		Email:       a.Email,
		Name:        nullable(a.Name),
		Username:    nullable(a.Username),
		Bio:         nullable(a.Bio),
		Theme:       a.Theme,
		DisplayName: a.DisplayName(),
		Initials:    a.Initials(),
		Handle:      a.Handle(),
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewAccount carries the validated fields of an insert.
type NewAccount struct {
	Email        string
	PasswordHash string
	Name         string
	Username     string
	Phone        string
	Theme        Theme
}

// SignupInput is the raw signup request.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Theme    string
}

// ProfileInput lists profile fields to change. Nil fields are left untouched.
type ProfileInput struct {
	Name     *string
	Username *string
	Bio      *string
	Email    *string
}

// Conflict names the uniqueness domain that rejected a write.
type Conflict int

const (
	NoConflict Conflict = iota
	EmailConflict
	UsernameConflict
)

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
