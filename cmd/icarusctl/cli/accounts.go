// Package cli implements the operator commands of icarusctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/icarus-art/icarus/internal/accounts"
	"github.com/icarus-art/icarus/internal/shared"
)

// AccountStore is the subset of the account service the CLI needs.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*accounts.Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// AccountsCLI toggles account activation.
type AccountsCLI struct {
	store AccountStore
}

// NewAccountsCLI constructs the helper.
func NewAccountsCLI(store AccountStore) (*AccountsCLI, error) {
	if store == nil {
		return nil, errors.New("accounts cli: store required")
	}
	return &AccountsCLI{store: store}, nil
}

// SetActiveOptions defines flags for the activate/deactivate commands.
type SetActiveOptions struct {
	Email  string
	Active bool
	Stdout io.Writer
	Stderr io.Writer
}

// SetActiveCommand flips is_active for the account owning the email.
// Deactivation also ends every session of the account.
func (c *AccountsCLI) SetActiveCommand(ctx context.Context, opts SetActiveOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	verb := "deactivate"
	if opts.Active {
		verb = "activate"
	}
	if opts.Email == "" {
		_, _ = fmt.Fprintf(opts.Stderr, "accounts %s: --email is required\n", verb)
		return 1
	}
	acct, err := c.store.FindByEmail(ctx, opts.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_, _ = fmt.Fprintf(opts.Stderr, "accounts %s: no account for %s\n", verb, opts.Email)
			return 2
		}
		_, _ = fmt.Fprintf(opts.Stderr, "accounts %s: %v\n", verb, err)
		return 1
	}
	if err := c.store.SetActive(ctx, acct.ID, opts.Active); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "accounts %s: %v\n", verb, err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "account %d (%s) %sd\n", acct.ID, acct.Email, verb)
	return 0
}
