package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
)

// CompileSchema compiles a JSON Schema map for repeated validation.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := CompileSchema(schemaMap)
	if err != nil {
		return err
	}
	_, err = decodeAndValidate(schema, data)
	return err
}

// decodeAndValidate parses data keeping numbers as json.Number and checks it against schema.
// Every failure wraps common.ErrSchemaViolation.
func decodeAndValidate(schema *jsonschema.Schema, data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: unmarshal data: %w", common.ErrSchemaViolation, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unmarshal data: trailing content after JSON value", common.ErrSchemaViolation)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: json does not match schema: %w", common.ErrSchemaViolation, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %T", common.ErrSchemaViolation, v)
	}
	return m, nil
}
