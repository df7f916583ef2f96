package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/peekwez/docai/internal/common"
)

// jsonObjectRE locates the first top-level {...} block, tolerating leading
// and trailing commentary around the object.
var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// CompileSchema checks that definition is a structurally valid JSON Schema
// under draft 2020-12 semantics.
func CompileSchema(definition json.RawMessage) error {
	_, err := compile(definition)
	return err
}

// ParseAndValidate extracts the JSON object embedded in raw model output,
// parses it, and validates it against the schema definition. Any failure is
// InvalidData.
func ParseAndValidate(definition json.RawMessage, raw string) (json.RawMessage, error) {
	match := jsonObjectRE.FindString(strings.TrimSpace(raw))
	if match == "" {
		return nil, common.InvalidData("no JSON object found in model output", nil)
	}

	var doc any
	if err := json.Unmarshal([]byte(match), &doc); err != nil {
		return nil, common.InvalidData("model output is not valid JSON", err)
	}

	schema, err := compile(definition)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, common.InvalidData("data does not match schema", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode validated data: %w", err)
	}
	return out, nil
}

func compile(definition json.RawMessage) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(definition)); err != nil {
		return nil, common.InvalidSchemaDefinition(err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, common.InvalidSchemaDefinition(err)
	}
	return schema, nil
}
