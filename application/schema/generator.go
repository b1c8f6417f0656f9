// Package schema generates JSON schemas for configuration types.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// SchemaID identifies the training configuration schema.
const SchemaID = "https://reglet.dev/schemas/crfsuite/training-config.json"

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct,
// with struct definitions expanded inline.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	return marshal(reflector.Reflect(v))
}

// TrainingConfigSchema returns the schema of crfsuite.yaml.
func TrainingConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(&entities.TrainingConfig{})
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "crfsuite training configuration"
	return marshal(s)
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
