package provider

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// Structured Outputs uses a subset of JSON schema
// These flags are necessary to comply with the subset
var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// SchemaFor reflects the JSON schema of T.
func SchemaFor[T any]() *jsonschema.Schema {
	var v T
	return reflector.Reflect(v)
}

// DecodeObject decodes the raw object of a result into T.
func DecodeObject[T any](result *ObjectResult) (T, error) {
	var v T
	if result == nil {
		return v, errors.New("nil object result")
	}
	if err := json.Unmarshal(result.Raw, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

// GenerateObjectAs runs GenerateObject and decodes the result into T. When
// the request has no schema, the schema of T is used.
func GenerateObjectAs[T any](ctx context.Context, p Provider, req ObjectRequest) (T, *ObjectResult, error) {
	var zero T
	if req.Schema == nil {
		req.Schema = SchemaFor[T]()
	}
	result, err := p.GenerateObject(ctx, req)
	if err != nil {
		return zero, nil, err
	}
	v, err := DecodeObject[T](result)
	if err != nil {
		return zero, result, err
	}
	return v, result, nil
}
