package constants

// JobStatus is the canonical status for rows in the monitor table.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // accepted, waiting for a worker
	JobStatusRunning   JobStatus = "RUNNING"   // extraction in progress
	JobStatusCompleted JobStatus = "COMPLETED" // terminal success
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)

// IsTerminal reports whether no further monitor entries are expected
// for the attempt.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// SchemaStatus is the lifecycle status of a schema definition.
type SchemaStatus string

const (
	SchemaStatusActive  SchemaStatus = "ACTIVE"
	SchemaStatusDeleted SchemaStatus = "DELETED" // soft delete; rows are never removed
)
