package entity

import "encoding/json"

// JobMessage is the self-contained payload published on the batch path.
// Media is already normalized and staged, so the worker never touches the
// original document bytes.
type JobMessage struct {
	RequestID        string          `json:"request_id"`
	SchemaName       string          `json:"schema_name"`
	SchemaVersion    string          `json:"schema_version"`
	SchemaDefinition json.RawMessage `json:"schema_definition"`
	Text             string          `json:"text_data"`
	Images           []StagedMedia   `json:"image_list,omitempty"`
}

func (m JobMessage) SchemaRef() SchemaRef {
	return SchemaRef{Name: m.SchemaName, Version: m.SchemaVersion}
}
