package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/peekwez/docai/internal/entity"
)

// TaskExtractRun is the batch extraction task type.
const TaskExtractRun = "extract:run"

// Options tunes the queue transport. Timeout is the visibility window: an
// unacknowledged task past this point is eligible for redelivery. Exhausted
// retries are archived (asynq's dead-letter set) for the retention window.
type Options struct {
	MaxRetry  int
	Timeout   time.Duration
	Retention time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxRetry:  5,
		Timeout:   300 * time.Second,
		Retention: 14 * 24 * time.Hour,
	}
}

// NewExtractionTask wraps a job message as an asynq task.
func NewExtractionTask(msg entity.JobMessage, opts Options) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskExtractRun,
		payload,
		asynq.MaxRetry(opts.MaxRetry),
		asynq.Timeout(opts.Timeout),
		asynq.Retention(opts.Retention),
	), nil
}
