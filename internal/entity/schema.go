package entity

import (
	"encoding/json"
	"time"

	"github.com/peekwez/docai/constants"
)

// SchemaRef identifies a schema. Identity is (Name, Version).
type SchemaRef struct {
	Name    string `json:"schema_name"`
	Version string `json:"schema_version"`
}

// Schema is a caller-defined JSON Schema describing the fields to extract.
// Immutable once created except for the Active -> Deleted status transition.
type Schema struct {
	Name        string                 `json:"schema_name"`
	Version     string                 `json:"schema_version"`
	Description string                 `json:"schema_description"`
	Definition  json.RawMessage        `json:"schema_definition"`
	Status      constants.SchemaStatus `json:"schema_status"`
	TokenCount  int                    `json:"number_of_tokens"`
	CreatedAt   time.Time              `json:"created_at"`
}

func (s *Schema) Ref() SchemaRef {
	return SchemaRef{Name: s.Name, Version: s.Version}
}

func (s *Schema) IsDeleted() bool {
	return s.Status == constants.SchemaStatusDeleted
}
