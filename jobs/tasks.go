package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes expired session audit rows.
	TaskSessionsPurge = "sessions:purge"
	// TaskWaitlistMarkNotified flags waitlist entries as notified.
	TaskWaitlistMarkNotified = "waitlist:mark-notified"
)

// SessionPurgePayload optionally pins the cutoff; zero means "now".
type SessionPurgePayload struct {
	Before time.Time `json:"before,omitempty"`
}

// MarkNotifiedPayload lists the waitlist entries to flag.
type MarkNotifiedPayload struct {
	IDs []int64 `json:"ids"`
}

// NewSessionPurgeTask constructs a purge task.
func NewSessionPurgeTask(payload SessionPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data), nil
}

// NewMarkNotifiedTask constructs a mark-notified task.
func NewMarkNotifiedTask(payload MarkNotifiedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWaitlistMarkNotified, data), nil
}
