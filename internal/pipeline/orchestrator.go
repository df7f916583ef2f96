package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
	"github.com/peekwez/docai/internal/llm"
	"github.com/peekwez/docai/internal/media"
	"github.com/peekwez/docai/internal/repository"
)

// SchemaLookup resolves a schema reference, failing with SchemaDoesNotExist
// for absent or soft-deleted schemas.
type SchemaLookup interface {
	Get(ctx context.Context, name, version string) (*entity.Schema, error)
}

// Stager uploads normalized images and presigns staged references.
type Stager interface {
	Stage(ctx context.Context, requestID string, images [][]byte) ([]entity.StagedMedia, error)
	Presign(refs []entity.StagedMedia) (map[string]string, error)
}

// Extractor is the schema-validated model client.
type Extractor interface {
	Extract(ctx context.Context, definition json.RawMessage, messages []llm.Message, model string) (*llm.Extraction, error)
}

// Queue publishes self-contained job messages for the batch path.
type Queue interface {
	Enqueue(ctx context.Context, msg entity.JobMessage) error
}

// Models carries the text/vision model pair for the selection rule.
type Models struct {
	Text   string
	Vision string
}

// Orchestrator coordinates schema lookup, normalization, staging, prompting,
// the model call, and the status/result writes around them. All dependencies
// are injected with process-lifetime scope.
type Orchestrator struct {
	Logger    *slog.Logger
	Schemas   SchemaLookup
	Results   repository.ResultRepository
	Monitor   repository.MonitorRepository
	Stager    Stager
	Extractor Extractor
	Queue     Queue
	Models    Models
}

func NewOrchestrator(
	logger *slog.Logger,
	schemas SchemaLookup,
	results repository.ResultRepository,
	monitor repository.MonitorRepository,
	stager Stager,
	extractor Extractor,
	queue Queue,
	models Models,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Logger:    logger,
		Schemas:   schemas,
		Results:   results,
		Monitor:   monitor,
		Stager:    stager,
		Extractor: extractor,
		Queue:     queue,
		Models:    models,
	}
}

// ExtractNow is the synchronous path: resolve the schema, normalize and
// stage the document, call the model, persist the outcome, and return it.
// Every failure writes a result row and a FAILED entry before propagating.
func (o *Orchestrator) ExtractNow(ctx context.Context, requestID string, ref entity.SchemaRef, doc entity.Document) (*entity.ExtractionResult, error) {
	o.Logger.Info("extract.start", "request_id", requestID, "schema_name", ref.Name, "mime_type", doc.MimeType)

	schema, err := o.Schemas.Get(ctx, ref.Name, ref.Version)
	if err != nil {
		o.recordFailure(ctx, requestID, ref, err)
		return nil, err
	}

	msg, err := o.prepare(ctx, requestID, schema, doc)
	if err != nil {
		o.recordFailure(ctx, requestID, ref, err)
		return nil, err
	}

	o.appendStatus(ctx, requestID, constants.JobStatusRunning)
	return o.runExtraction(ctx, msg)
}

// Enqueue is the batch path: the schema lookup runs synchronously so callers
// get fast feedback, media is normalized and staged eagerly, and the job
// message carries ready-to-use references instead of the raw payload.
func (o *Orchestrator) Enqueue(ctx context.Context, requestID string, ref entity.SchemaRef, doc entity.Document) (*entity.JobAck, error) {
	if o.Queue == nil {
		return nil, errors.New("queue not configured")
	}
	o.Logger.Info("enqueue.start", "request_id", requestID, "schema_name", ref.Name, "mime_type", doc.MimeType)

	schema, err := o.Schemas.Get(ctx, ref.Name, ref.Version)
	if err != nil {
		o.recordFailure(ctx, requestID, ref, err)
		return nil, err
	}

	msg, err := o.prepare(ctx, requestID, schema, doc)
	if err != nil {
		o.recordFailure(ctx, requestID, ref, err)
		return nil, err
	}

	if err := o.Queue.Enqueue(ctx, msg); err != nil {
		o.recordFailure(ctx, requestID, ref, err)
		return nil, err
	}
	o.appendStatus(ctx, requestID, constants.JobStatusQueued)

	o.Logger.Info("enqueue.ok", "request_id", requestID)
	return &entity.JobAck{RequestID: requestID, Status: constants.JobStatusQueued}, nil
}

// RunJob is the worker core for a dequeued message. It appends RUNNING,
// re-presigns the staged references, and runs the same model-calling path as
// the synchronous entry point. Idempotent per request_id modulo model
// nondeterminism: monitor entries are append-only and result writes are
// last-write-wins overwrites.
func (o *Orchestrator) RunJob(ctx context.Context, msg entity.JobMessage) error {
	o.Logger.Info("job.start", "request_id", msg.RequestID, "schema_name", msg.SchemaName, "images", len(msg.Images))
	o.appendStatus(ctx, msg.RequestID, constants.JobStatusRunning)
	_, err := o.runExtraction(ctx, msg)
	return err
}

// GetResult returns the current status and, once terminal, the stored
// result or error record.
func (o *Orchestrator) GetResult(ctx context.Context, requestID string) (*entity.StatusResult, error) {
	latest, err := o.Monitor.Latest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, common.RequestDoesNotExist(requestID)
	}

	out := &entity.StatusResult{
		RequestID: requestID,
		Status:    latest.Status,
		UpdatedAt: latest.CreatedAt,
	}
	if !latest.Status.IsTerminal() {
		return out, nil
	}

	// Terminal entries are written after the result row, so the row must
	// exist here.
	res, err := o.Results.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if res != nil {
		out.Data = res.Result
		out.Error = res.Error
	}
	return out, nil
}

// GetStatus returns the most recent monitor entry for the request.
func (o *Orchestrator) GetStatus(ctx context.Context, requestID string) (*entity.MonitorEntry, error) {
	latest, err := o.Monitor.Latest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, common.RequestDoesNotExist(requestID)
	}
	return latest, nil
}

// prepare normalizes the document and stages its images, producing the
// self-contained message both execution paths run from.
func (o *Orchestrator) prepare(ctx context.Context, requestID string, schema *entity.Schema, doc entity.Document) (entity.JobMessage, error) {
	norm, err := media.Normalize(doc)
	if err != nil {
		return entity.JobMessage{}, err
	}

	refs, err := o.Stager.Stage(ctx, requestID, norm.Images)
	if err != nil {
		return entity.JobMessage{}, err
	}

	return entity.JobMessage{
		RequestID:        requestID,
		SchemaName:       schema.Name,
		SchemaVersion:    schema.Version,
		SchemaDefinition: schema.Definition,
		Text:             norm.Text,
		Images:           refs,
	}, nil
}

// runExtraction presigns references, builds the prompt, invokes the model
// client, and persists the outcome. The result write happens before the
// terminal monitor entry so a poller never sees a terminal status without a
// result row.
func (o *Orchestrator) runExtraction(ctx context.Context, msg entity.JobMessage) (*entity.ExtractionResult, error) {
	ref := msg.SchemaRef()

	urls, err := o.presignOrdered(msg.Images)
	if err != nil {
		o.recordFailure(ctx, msg.RequestID, ref, err)
		return nil, err
	}

	messages := llm.BuildMessages(msg.SchemaDefinition, msg.Text, urls)
	model := llm.SelectModel(o.Models.Text, o.Models.Vision, len(urls))

	extraction, err := o.Extractor.Extract(ctx, msg.SchemaDefinition, messages, model)
	if err != nil {
		o.recordFailure(ctx, msg.RequestID, ref, err)
		return nil, err
	}

	metadata, _ := json.Marshal(extraction.Usage)
	result := &entity.ExtractionResult{
		RequestID:     msg.RequestID,
		SchemaName:    ref.Name,
		SchemaVersion: ref.Version,
		Result:        extraction.Result,
		Metadata:      metadata,
	}
	if err := o.Results.Put(ctx, result); err != nil {
		o.recordFailure(ctx, msg.RequestID, ref, err)
		return nil, err
	}
	o.appendStatus(ctx, msg.RequestID, constants.JobStatusCompleted)

	o.Logger.Info("extract.ok",
		"request_id", msg.RequestID,
		"schema_name", ref.Name,
		"model", extraction.Model,
		"attempts", extraction.Attempts,
	)
	return result, nil
}

// recordFailure writes the error result row then the terminal FAILED entry,
// in that order; if the row write fails no terminal entry is appended. Store
// errors here are logged, not propagated: the original failure is the one the
// caller needs.
func (o *Orchestrator) recordFailure(ctx context.Context, requestID string, ref entity.SchemaRef, cause error) {
	o.Logger.Error("extract.failed", "request_id", requestID, "schema_name", ref.Name, "error", cause)

	info := &entity.ErrorInfo{Name: common.ErrorName(cause), Message: errorMessage(cause)}
	res := &entity.ExtractionResult{
		RequestID:     requestID,
		SchemaName:    ref.Name,
		SchemaVersion: ref.Version,
		Error:         info,
	}
	if err := o.Results.Put(ctx, res); err != nil {
		// A terminal entry without a result row would break the poller's
		// result-before-terminal guarantee; leave the request non-terminal.
		o.Logger.Error("extract.failure_record_failed", "request_id", requestID, "error", err)
		return
	}
	o.appendStatus(ctx, requestID, constants.JobStatusFailed)
}

func (o *Orchestrator) appendStatus(ctx context.Context, requestID string, status constants.JobStatus) {
	entry := entity.MonitorEntry{
		RequestID: requestID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.Monitor.Append(ctx, entry); err != nil {
		o.Logger.Error("monitor.append_failed", "request_id", requestID, "status", status, "error", err)
	}
}

// presignOrdered returns URLs in staging (page) order.
func (o *Orchestrator) presignOrdered(refs []entity.StagedMedia) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	byKey, err := o.Stager.Presign(refs)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, byKey[ref.Key])
	}
	return urls, nil
}

// errorMessage stores the full message in the result row; the transport
// layer decides what a client may see.
func errorMessage(err error) string {
	if de, ok := common.AsDomain(err); ok {
		return de.Message
	}
	return err.Error()
}
