package entity

import (
	"encoding/json"
	"time"

	"github.com/peekwez/docai/constants"
)

// ErrorInfo is the client-facing error record stored with failed results.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ExtractionResult is the outcome of one extraction request. Exactly one of
// Result/Error is populated. Writes are idempotent overwrites keyed by
// RequestID (last-write-wins on redelivery).
type ExtractionResult struct {
	RequestID     string          `json:"request_id"`
	SchemaName    string          `json:"schema_name"`
	SchemaVersion string          `json:"schema_version"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         *ErrorInfo      `json:"error,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"` // model usage block
	CreatedAt     time.Time       `json:"created_at"`
}

// MonitorEntry is one row in the append-only status ledger for a request.
// Entries are never updated or deleted.
type MonitorEntry struct {
	RequestID string              `json:"request_id"`
	Status    constants.JobStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// StagedMedia is a content-store reference returned by the blob stager.
// Retrieval URLs are generated on demand and never stored.
type StagedMedia struct {
	Key      string `json:"key"`
	MimeType string `json:"mime_type"`
}

// JobAck is returned immediately on the batch path.
type JobAck struct {
	RequestID string              `json:"request_id"`
	Status    constants.JobStatus `json:"status"`
}

// StatusResult is the polling view: current status plus, once terminal,
// the result or error record.
type StatusResult struct {
	RequestID string              `json:"request_id"`
	Status    constants.JobStatus `json:"status"`
	UpdatedAt time.Time           `json:"updated_at"`
	Data      json.RawMessage     `json:"data,omitempty"`
	Error     *ErrorInfo          `json:"error,omitempty"`
}
