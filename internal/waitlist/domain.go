package waitlist

import "time"

// DefaultSource tags entries submitted through the waitlist page.
const DefaultSource = "waitlist-page"

// Entry is a pre-launch interest registration. Entries are never deleted.
type Entry struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Notified  bool      `json:"notified"`
}

// JoinInput is a raw waitlist submission.
type JoinInput struct {
	Email  string
	Name   string
	Role   string
	Source string
}

// JoinOutcome tells a fresh registration from a repeat one.
type JoinOutcome int

const (
	Joined JoinOutcome = iota + 1
	AlreadyListed
)

func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case AlreadyListed:
		return "already_listed"
	default:
		return "unknown"
	}
}
