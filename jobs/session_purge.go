package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/icarus-art/icarus/internal/jobs"
)

// SessionPurger deletes session audit rows that expired before now.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionPurgeJob handles TaskSessionsPurge.
type SessionPurgeJob struct {
	Purger  SessionPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionPurgeJob initialises the purge handler.
func NewSessionPurgeJob(purger SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurgeJob {
	return &SessionPurgeJob{
		Purger:  purger,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the purge.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Purger == nil {
		return errors.New("session purge: handler not configured")
	}
	var payload SessionPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("session purge: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	cutoff := payload.Before
	if cutoff.IsZero() {
		cutoff = j.clock()
	}

	tracker := j.Metrics.Track(TaskSessionsPurge)
	defer func() { err = tracker.End(err) }()

	purged, err := j.Purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		j.logger().Error("purge sessions", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskSessionsPurge, purged)
	j.logger().Info("purged expired sessions", slog.Int64("purged", purged), slog.Time("cutoff", cutoff))
	return nil
}

func (j *SessionPurgeJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
