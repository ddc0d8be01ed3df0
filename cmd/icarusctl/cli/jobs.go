package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/icarus-art/icarus/jobs"
)

// Enqueuer submits background tasks.
type Enqueuer interface {
	EnqueueSessionPurge(ctx context.Context, payload jobs.SessionPurgePayload) (*asynq.TaskInfo, error)
	EnqueueMarkNotified(ctx context.Context, payload jobs.MarkNotifiedPayload) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers. The inspector is optional.
func NewJobsCLI(client Enqueuer, inspector *asynq.Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// TriggerOptions defines flags for enqueueing a task.
type TriggerOptions struct {
	Task   string
	IDs    string
	Stdout io.Writer
	Stderr io.Writer
}

// TriggerCommand enqueues a supported task by name.
func (c *JobsCLI) TriggerCommand(ctx context.Context, opts TriggerOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.client == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: client not configured")
		return 1
	}
	var (
		info *asynq.TaskInfo
		err  error
	)
	switch opts.Task {
	case jobs.TaskSessionsPurge:
		info, err = c.client.EnqueueSessionPurge(ctx, jobs.SessionPurgePayload{})
	case jobs.TaskWaitlistMarkNotified:
		ids, parseErr := ParseIDs(opts.IDs)
		if parseErr != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", parseErr)
			return 1
		}
		info, err = c.client.EnqueueMarkNotified(ctx, jobs.MarkNotifiedPayload{IDs: ids})
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: unsupported task %q\n", opts.Task)
		return 1
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ParseIDs parses a comma separated list of positive ids.
func ParseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("--ids is required")
	}
	return ids, nil
}
