package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/icarus-art/icarus/internal/jobs"
)

// NotifiedMarker flags waitlist entries as notified.
type NotifiedMarker interface {
	MarkNotified(ctx context.Context, ids []int64) (int64, error)
}

// MarkNotifiedJob handles TaskWaitlistMarkNotified.
type MarkNotifiedJob struct {
	Marker  NotifiedMarker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMarkNotifiedJob initialises the handler.
func NewMarkNotifiedJob(marker NotifiedMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *MarkNotifiedJob {
	return &MarkNotifiedJob{Marker: marker, Logger: logger, Metrics: metrics}
}

// Handle flags the entries named in the payload.
func (j *MarkNotifiedJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Marker == nil {
		return errors.New("mark notified: handler not configured")
	}
	var payload MarkNotifiedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("mark notified: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.IDs) == 0 {
		return nil
	}

	tracker := j.Metrics.Track(TaskWaitlistMarkNotified)
	defer func() { err = tracker.End(err) }()

	changed, err := j.Marker.MarkNotified(ctx, payload.IDs)
	if err != nil {
		return err
	}
	j.Metrics.AddAffected(TaskWaitlistMarkNotified, changed)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("waitlist entries notified", slog.Int("requested", len(payload.IDs)), slog.Int64("changed", changed))
	return nil
}
