// Package schema wraps JSON Schema validation behind the narrow contract the
// converter needs: compile a schema once at startup, then validate decoded
// documents against it, surfacing the violating path on failure.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError reports a document that failed schema validation. Label
// identifies the document for the caller ("SARIF input", "findings output").
type ValidationError struct {
	Label   string
	Message string
	Path    string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s validation failed at %s: %s", e.Label, e.Path, e.Message)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Label, e.Message)
}

// Validator validates documents against a compiled JSON Schema.
type Validator struct {
	source string
	schema *jsonschema.Schema
}

// NewValidator compiles the schema at path. The ingestion schemas are
// authored against draft-04. A missing or malformed schema is a startup
// precondition failure and is returned as-is.
func NewValidator(path string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft4

	compiled, err := compiler.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}

	return &Validator{source: path, schema: compiled}, nil
}

// Source returns the path the schema was compiled from.
func (v *Validator) Source() string {
	return v.source
}

// Validate checks doc against the schema. doc may be a decoded JSON value or
// any marshalable Go value; it is normalized through a JSON round trip
// before validation. Returns nil on success and a *ValidationError on
// schema violation.
func (v *Validator) Validate(doc any, label string) error {
	normalized, err := normalize(doc)
	if err != nil {
		return &ValidationError{Label: label, Message: err.Error()}
	}

	if err := v.schema.Validate(normalized); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := leafError(ve)
			return &ValidationError{
				Label:   label,
				Message: leaf.Message,
				Path:    leaf.InstanceLocation,
			}
		}
		return &ValidationError{Label: label, Message: err.Error()}
	}

	return nil
}

// normalize converts doc into the decoded-JSON representation the validator
// operates on (maps, slices, float64 numbers).
func normalize(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// leafError walks to the most specific cause of a validation failure; the
// root error is usually just "doesn't validate with ...".
func leafError(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
