// Package schemacheck validates decoded model output against the JSON Schema
// a caller asked the model to follow.
package schemacheck

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/sjson"
)

// ErrNilSchema is returned when Compile is called without a schema.
var ErrNilSchema = errors.New("schema is nil")

// Validator checks JSON values against a compiled schema.
type Validator struct {
	resolved *gschema.Resolved
	document []byte
}

// Compile prepares a validator for the reflected schema.
//
// The $schema and $id keywords are dropped first: reflected schemas carry a
// package-derived $id that is meaningless for validation.
func Compile(schema *jsonschema.Schema) (*Validator, error) {
	if schema == nil {
		return nil, ErrNilSchema
	}
	doc, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return CompileJSON(doc)
}

// CompileJSON prepares a validator from a raw JSON Schema document.
func CompileJSON(doc []byte) (*Validator, error) {
	var err error
	for _, key := range []string{"$schema", "$id"} {
		if doc, err = sjson.DeleteBytes(doc, key); err != nil {
			return nil, fmt.Errorf("normalize schema: %w", err)
		}
	}

	var s gschema.Schema
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return &Validator{resolved: resolved, document: doc}, nil
}

// Validate checks a value decoded from JSON (maps, slices, float64, string,
// bool, nil).
func (v *Validator) Validate(instance any) error {
	return v.resolved.Validate(instance)
}

// ValidateJSON decodes raw JSON and validates it, returning the decoded value.
func (v *Validator) ValidateJSON(raw []byte) (any, error) {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if err := v.Validate(instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Document returns the normalized schema document the validator was built from.
func (v *Validator) Document() []byte {
	return v.document
}
