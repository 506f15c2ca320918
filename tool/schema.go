package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema creates a JSON schema from a Go argument struct using struct tags.
//
// Supported tags:
//   - json:"name" - parameter name
//   - json:",omitempty" - optional parameter
//   - jsonschema:"required" - explicitly mark as required
//   - jsonschema:"description=..." - parameter description
//   - jsonschema:"enum=val1|val2" - allowed values
//   - jsonschema:"minimum=N,maximum=M" - numeric constraints
//
// Example:
//
//	type Args struct {
//	    Query string `json:"query" jsonschema:"required,description=Search query"`
//	    Limit int    `json:"limit,omitempty" jsonschema:"description=Max results,default=10"`
//	}
func Schema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	schemaMap, err := schemaToMap(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to convert schema to map: %w", err)
	}

	// Models expect a bare object schema: type/properties/required only.
	if schemaMap["type"] == "object" {
		result := map[string]any{
			"type":       "object",
			"properties": schemaMap["properties"],
		}
		if required, ok := schemaMap["required"]; ok {
			result["required"] = required
		}
		return result, nil
	}

	return schemaMap, nil
}

// MustSchema is Schema for package-level tool declarations where a malformed
// argument struct is a programming error.
func MustSchema[T any]() map[string]any {
	s, err := Schema[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// schemaToMap converts a jsonschema.Schema to map[string]any by a marshal
// round trip, which normalizes all jsonschema types.
func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	delete(result, "$schema")
	delete(result, "$id")

	return result, nil
}
