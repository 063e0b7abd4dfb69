package jobs

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-logistics/backoffice/internal/query"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheRefresh refetches a stale cache entry in the background.
	TaskCacheRefresh = "cache:refresh"
)

// NewCacheRefreshTask constructs an Asynq task from a refresh request.
func NewCacheRefreshTask(r query.Refresh) (*asynq.Task, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheRefresh, data), nil
}

// Refetcher is the slice of the orchestrator the refresh job needs.
type Refetcher interface {
	Refetch(ctx context.Context, r query.Refresh) error
}

// RefreshJob processes TaskCacheRefresh tasks.
type RefreshJob struct {
	orch   Refetcher
	logger *slog.Logger
}

// NewRefreshJob constructs a RefreshJob.
func NewRefreshJob(orch Refetcher, logger *slog.Logger) *RefreshJob {
	return &RefreshJob{orch: orch, logger: logger}
}

// Handle refetches the described entry. Malformed payloads are dropped
// instead of retried.
func (j *RefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload query.Refresh
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.orch.Refetch(ctx, payload); err != nil {
		if j.logger != nil {
			j.logger.Warn("cache refresh",
				slog.String("resource", payload.Resource),
				slog.Any("error", err))
		}
		return err
	}
	return nil
}
