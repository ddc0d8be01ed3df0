package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/icarus-art/icarus/internal/waitlist"
)

// WaitlistLister reads waitlist entries.
type WaitlistLister interface {
	ListAll(ctx context.Context) ([]waitlist.Entry, error)
}

// WaitlistCLI prints waitlist entries.
type WaitlistCLI struct {
	lister WaitlistLister
}

// NewWaitlistCLI constructs the helper.
func NewWaitlistCLI(lister WaitlistLister) *WaitlistCLI {
	return &WaitlistCLI{lister: lister}
}

// ListOptions defines flags for the waitlist list command.
type ListOptions struct {
	PendingOnly bool
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// ListCommand prints entries newest first.
func (c *WaitlistCLI) ListCommand(ctx context.Context, opts ListOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	entries, err := c.lister.ListAll(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "waitlist list: %v\n", err)
		return 1
	}
	if opts.PendingOnly {
		pending := entries[:0:0]
		for _, e := range entries {
			if !e.Notified {
				pending = append(pending, e)
			}
		}
		entries = pending
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(entries); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "waitlist list: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tSOURCE\tNOTIFIED\tCREATED")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			e.ID, e.Email, e.Name, e.Role, e.Source, e.Notified, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
	return 0
}
