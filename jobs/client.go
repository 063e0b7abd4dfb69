package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/meridian-logistics/backoffice/internal/query"
)

// Client submits jobs to the queue. It satisfies query.Refresher so the
// orchestrator can hand stale entries to the background worker.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueRefresh enqueues a cache refresh task.
func (c *Client) EnqueueRefresh(ctx context.Context, r query.Refresh) error {
	task, err := NewCacheRefreshTask(r)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
