package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
)

// JobRunner is the worker-side extraction core.
type JobRunner interface {
	RunJob(ctx context.Context, msg entity.JobMessage) error
}

// Worker handles dequeued extraction tasks.
type Worker struct {
	runner JobRunner
	log    *slog.Logger
}

func NewWorker(runner JobRunner, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{runner: runner, log: logger}
}

// Register attaches the worker's handlers to the mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskExtractRun, w.HandleExtraction)
}

// HandleExtraction runs one job message. Domain failures are already
// recorded as a FAILED result by the runner, so they skip redelivery;
// unexpected failures propagate to the transport's retry policy.
func (w *Worker) HandleExtraction(ctx context.Context, t *asynq.Task) error {
	var msg entity.JobMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		w.log.Error("worker.bad_payload", "error", err)
		return fmt.Errorf("unmarshal job payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.runner.RunJob(ctx, msg); err != nil {
		if _, ok := common.AsDomain(err); ok {
			w.log.Warn("worker.job.failed", "request_id", msg.RequestID, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		w.log.Error("worker.job.error", "request_id", msg.RequestID, "error", err)
		return err
	}

	w.log.Info("worker.job.ok", "request_id", msg.RequestID)
	return nil
}
