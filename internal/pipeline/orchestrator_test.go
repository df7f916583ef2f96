package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/common"
	"github.com/peekwez/docai/internal/entity"
	"github.com/peekwez/docai/internal/llm"
)

var testSchema = &entity.Schema{
	Name:       "invoice",
	Version:    "v1abc",
	Definition: json.RawMessage(`{"type":"object","properties":{"total":{"type":"number"}},"required":["total"]}`),
	Status:     constants.SchemaStatusActive,
}

type fakeSchemas struct {
	schema *entity.Schema
}

func (f *fakeSchemas) Get(_ context.Context, name, version string) (*entity.Schema, error) {
	if f.schema == nil || f.schema.Name != name || f.schema.Version != version {
		return nil, common.SchemaDoesNotExist(name, version)
	}
	return f.schema, nil
}

// eventStore backs the result and monitor fakes and records write order.
type eventStore struct {
	events  []string
	results map[string]*entity.ExtractionResult
	monitor map[string][]entity.MonitorEntry
}

func newEventStore() *eventStore {
	return &eventStore{
		results: map[string]*entity.ExtractionResult{},
		monitor: map[string][]entity.MonitorEntry{},
	}
}

type fakeResults struct {
	store  *eventStore
	putErr error
}

func (f *fakeResults) Put(_ context.Context, res *entity.ExtractionResult) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.store.events = append(f.store.events, "result:"+res.RequestID)
	cp := *res
	f.store.results[res.RequestID] = &cp
	return nil
}

func (f *fakeResults) Get(_ context.Context, requestID string) (*entity.ExtractionResult, error) {
	return f.store.results[requestID], nil
}

type fakeMonitor struct{ store *eventStore }

func (f *fakeMonitor) Append(_ context.Context, e entity.MonitorEntry) error {
	f.store.events = append(f.store.events, fmt.Sprintf("monitor:%s:%s", e.RequestID, e.Status))
	f.store.monitor[e.RequestID] = append(f.store.monitor[e.RequestID], e)
	return nil
}

func (f *fakeMonitor) Latest(_ context.Context, requestID string) (*entity.MonitorEntry, error) {
	entries := f.store.monitor[requestID]
	if len(entries) == 0 {
		return nil, nil
	}
	e := entries[len(entries)-1]
	return &e, nil
}

func (f *fakeMonitor) History(_ context.Context, requestID string) ([]entity.MonitorEntry, error) {
	return f.store.monitor[requestID], nil
}

type fakeStager struct {
	staged int
}

func (f *fakeStager) Stage(_ context.Context, requestID string, images [][]byte) ([]entity.StagedMedia, error) {
	refs := make([]entity.StagedMedia, len(images))
	for i := range images {
		refs[i] = entity.StagedMedia{
			Key:      fmt.Sprintf("%s/img-%d.png", requestID, i),
			MimeType: constants.StagedImageMime,
		}
	}
	f.staged += len(images)
	return refs, nil
}

func (f *fakeStager) Presign(refs []entity.StagedMedia) (map[string]string, error) {
	urls := make(map[string]string, len(refs))
	for _, ref := range refs {
		urls[ref.Key] = "https://signed.example/" + ref.Key
	}
	return urls, nil
}

type fakeExtractor struct {
	result json.RawMessage
	err    error
	calls  int
	model  string
}

func (f *fakeExtractor) Extract(_ context.Context, _ json.RawMessage, _ []llm.Message, model string) (*llm.Extraction, error) {
	f.calls++
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Extraction{
		Result:   f.result,
		Usage:    llm.Usage{TotalTokens: 42},
		Model:    model,
		Attempts: 1,
	}, nil
}

type fakeQueue struct {
	msgs []entity.JobMessage
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, msg entity.JobMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type harness struct {
	orch      *Orchestrator
	store     *eventStore
	results   *fakeResults
	stager    *fakeStager
	extractor *fakeExtractor
	queue     *fakeQueue
}

func newHarness(schema *entity.Schema) *harness {
	store := newEventStore()
	results := &fakeResults{store: store}
	stager := &fakeStager{}
	extractor := &fakeExtractor{result: json.RawMessage(`{"total": 12.5}`)}
	q := &fakeQueue{}
	orch := NewOrchestrator(
		nil,
		&fakeSchemas{schema: schema},
		results,
		&fakeMonitor{store: store},
		stager,
		extractor,
		q,
		Models{Text: "text-m", Vision: "vision-m"},
	)
	return &harness{orch: orch, store: store, results: results, stager: stager, extractor: extractor, queue: q}
}

func textDoc(content string) entity.Document {
	return entity.Document{
		Content:  base64.StdEncoding.EncodeToString([]byte(content)),
		MimeType: constants.MimeTypeText,
	}
}

func TestExtractNowSuccess(t *testing.T) {
	h := newHarness(testSchema)
	ref := entity.SchemaRef{Name: "invoice", Version: "v1abc"}

	res, err := h.orch.ExtractNow(context.Background(), "req-1", ref, textDoc("total due: 12.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Result) != `{"total": 12.5}` {
		t.Errorf("result = %s", res.Result)
	}
	if h.extractor.model != "text-m" {
		t.Errorf("model = %q, want text-m (no images)", h.extractor.model)
	}

	// Status trail: RUNNING then COMPLETED, with the result row written
	// before the terminal entry.
	want := []string{"monitor:req-1:RUNNING", "result:req-1", "monitor:req-1:COMPLETED"}
	if len(h.store.events) != len(want) {
		t.Fatalf("events = %v, want %v", h.store.events, want)
	}
	for i, e := range want {
		if h.store.events[i] != e {
			t.Errorf("event %d = %q, want %q", i, h.store.events[i], e)
		}
	}
}

func TestExtractNowSchemaMissing(t *testing.T) {
	h := newHarness(nil)
	ref := entity.SchemaRef{Name: "ghost", Version: "v0"}

	_, err := h.orch.ExtractNow(context.Background(), "req-2", ref, textDoc("hello"))
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameSchemaDoesNotExist {
		t.Fatalf("error = %v, want SchemaDoesNotExist", err)
	}
	if h.extractor.calls != 0 {
		t.Errorf("model was called despite missing schema")
	}

	// The failure leaves an audit trail: error row first, FAILED after.
	res := h.store.results["req-2"]
	if res == nil || res.Error == nil || res.Error.Name != common.ErrNameSchemaDoesNotExist {
		t.Fatalf("error result row = %+v", res)
	}
	want := []string{"result:req-2", "monitor:req-2:FAILED"}
	if len(h.store.events) != 2 || h.store.events[0] != want[0] || h.store.events[1] != want[1] {
		t.Errorf("events = %v, want %v", h.store.events, want)
	}
}

func TestExtractNowModelFailure(t *testing.T) {
	h := newHarness(testSchema)
	h.extractor.err = common.InvalidData("model output failed validation", nil)
	ref := entity.SchemaRef{Name: "invoice", Version: "v1abc"}

	_, err := h.orch.ExtractNow(context.Background(), "req-3", ref, textDoc("x"))
	if _, ok := common.AsDomain(err); !ok {
		t.Fatalf("error = %v, want domain error", err)
	}

	status, err := h.orch.GetStatus(context.Background(), "req-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != constants.JobStatusFailed {
		t.Errorf("status = %s, want FAILED", status.Status)
	}
}

func TestEnqueueThenRunJob(t *testing.T) {
	h := newHarness(testSchema)
	ref := entity.SchemaRef{Name: "invoice", Version: "v1abc"}

	ack, err := h.orch.Enqueue(context.Background(), "req-4", ref, textDoc("total due: 12.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Status != constants.JobStatusQueued {
		t.Errorf("ack status = %s, want QUEUED", ack.Status)
	}
	if len(h.queue.msgs) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(h.queue.msgs))
	}

	// Poll before the worker runs: non-terminal, no data.
	sr, err := h.orch.GetResult(context.Background(), "req-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.Status != constants.JobStatusQueued || sr.Data != nil {
		t.Errorf("pre-run poll = %+v", sr)
	}

	// The job message carries everything the worker needs.
	msg := h.queue.msgs[0]
	if msg.RequestID != "req-4" || len(msg.SchemaDefinition) == 0 {
		t.Fatalf("job message incomplete: %+v", msg)
	}

	if err := h.orch.RunJob(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sr, err = h.orch.GetResult(context.Background(), "req-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.Status != constants.JobStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", sr.Status)
	}
	if string(sr.Data) != `{"total": 12.5}` {
		t.Errorf("data = %s", sr.Data)
	}
}

func TestRunJobRedeliveryOverwrites(t *testing.T) {
	h := newHarness(testSchema)
	msg := entity.JobMessage{
		RequestID:        "req-5",
		SchemaName:       "invoice",
		SchemaVersion:    "v1abc",
		SchemaDefinition: testSchema.Definition,
		Text:             "total due: 12.50",
	}

	for i := 0; i < 2; i++ {
		if err := h.orch.RunJob(context.Background(), msg); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
	}

	sr, err := h.orch.GetResult(context.Background(), "req-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.Status != constants.JobStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", sr.Status)
	}
	if h.extractor.calls != 2 {
		t.Errorf("model calls = %d, want 2", h.extractor.calls)
	}
}

func TestRunJobVisionModelForImages(t *testing.T) {
	h := newHarness(testSchema)
	msg := entity.JobMessage{
		RequestID:        "req-6",
		SchemaName:       "invoice",
		SchemaVersion:    "v1abc",
		SchemaDefinition: testSchema.Definition,
		Images: []entity.StagedMedia{
			{Key: "req-6/a.png", MimeType: constants.StagedImageMime},
		},
	}

	if err := h.orch.RunJob(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.extractor.model != "vision-m" {
		t.Errorf("model = %q, want vision-m", h.extractor.model)
	}
}

func TestEnqueueFailureRecordsFailed(t *testing.T) {
	h := newHarness(testSchema)
	h.queue.err = errors.New("redis down")
	ref := entity.SchemaRef{Name: "invoice", Version: "v1abc"}

	_, err := h.orch.Enqueue(context.Background(), "req-7", ref, textDoc("x"))
	if err == nil {
		t.Fatal("expected enqueue error")
	}

	status, err := h.orch.GetStatus(context.Background(), "req-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != constants.JobStatusFailed {
		t.Errorf("status = %s, want FAILED", status.Status)
	}
}

func TestFailureRowWriteFailureLeavesNoTerminalEntry(t *testing.T) {
	h := newHarness(nil)
	h.results.putErr = errors.New("store down")
	ref := entity.SchemaRef{Name: "ghost", Version: "v0"}

	_, err := h.orch.ExtractNow(context.Background(), "req-9", ref, textDoc("x"))
	if err == nil {
		t.Fatal("expected error")
	}

	// With no result row a terminal entry would strand the poller, so none
	// may be written.
	for _, e := range h.store.events {
		if e == "monitor:req-9:FAILED" {
			t.Fatalf("terminal entry written without a result row: %v", h.store.events)
		}
	}
}

func TestEnqueueWithoutQueue(t *testing.T) {
	store := newEventStore()
	orch := NewOrchestrator(
		nil,
		&fakeSchemas{schema: testSchema},
		&fakeResults{store: store},
		&fakeMonitor{store: store},
		&fakeStager{},
		&fakeExtractor{},
		nil,
		Models{Text: "text-m", Vision: "vision-m"},
	)

	_, err := orch.Enqueue(context.Background(), "req-10",
		entity.SchemaRef{Name: "invoice", Version: "v1abc"}, textDoc("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.events) != 0 {
		t.Errorf("events = %v, want none", store.events)
	}
}

func TestGetResultUnknownRequest(t *testing.T) {
	h := newHarness(testSchema)
	_, err := h.orch.GetResult(context.Background(), "nope")
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameRequestDoesNotExist {
		t.Fatalf("error = %v, want RequestDoesNotExist", err)
	}
}

func TestExtractNowUnsupportedMime(t *testing.T) {
	h := newHarness(testSchema)
	ref := entity.SchemaRef{Name: "invoice", Version: "v1abc"}
	doc := entity.Document{Content: "aGk=", MimeType: "application/zip"}

	_, err := h.orch.ExtractNow(context.Background(), "req-8", ref, doc)
	de, ok := common.AsDomain(err)
	if !ok || de.Name != common.ErrNameInvalidMimeType {
		t.Fatalf("error = %v, want InvalidMimeType", err)
	}
	if h.stager.staged != 0 {
		t.Errorf("staged %d images for rejected document", h.stager.staged)
	}
}
