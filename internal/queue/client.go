package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/peekwez/docai/internal/entity"
)

// Client publishes extraction jobs. Implements pipeline.Queue.
type Client struct {
	inner *asynq.Client
	opts  Options
	log   *slog.Logger
}

func NewClient(redisOpt asynq.RedisClientOpt, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{inner: asynq.NewClient(redisOpt), opts: opts, log: logger}
}

func (c *Client) Enqueue(ctx context.Context, msg entity.JobMessage) error {
	task, err := NewExtractionTask(msg, c.opts)
	if err != nil {
		return fmt.Errorf("build extraction task: %w", err)
	}
	info, err := c.inner.EnqueueContext(ctx, task)
	if err != nil {
		c.log.Error("queue.enqueue_failed", "request_id", msg.RequestID, "error", err)
		return fmt.Errorf("enqueue extraction task: %w", err)
	}
	c.log.Info("queue.enqueued", "request_id", msg.RequestID, "task_id", info.ID, "queue", info.Queue)
	return nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}
