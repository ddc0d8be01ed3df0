package auth

import "time"

// SessionRecord is the audit row written for every sign-in.
type SessionRecord struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
