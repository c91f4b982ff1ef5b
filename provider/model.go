package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/pplx/pkg/messages"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

const (
	// DefaultObjectName is used when an object request does not name its output.
	DefaultObjectName = "generated_object"
	// DefaultObjectRetries is the validation retry budget when none is given.
	DefaultObjectRetries = 1
)

// Provider is the uniform contract every model provider adapter implements.
// Implementations hold only immutable configuration and are safe for
// concurrent use; each call builds its own client.
type Provider interface {
	// Name returns the human readable provider name, e.g. "Perplexity".
	Name() string

	// GenerateText issues a single non-streaming generation.
	GenerateText(context.Context, TextRequest) (*TextResult, error)

	// StreamText starts a streaming generation and returns as soon as the
	// stream is established.
	StreamText(context.Context, TextRequest) (*TextStream, error)

	// GenerateObject asks the model for a value that conforms to a schema.
	GenerateObject(context.Context, ObjectRequest) (*ObjectResult, error)
}

// Credentials identify the caller to the provider endpoint.
type Credentials struct {
	// APIKey is required. An empty key fails the call before any I/O.
	APIKey string

	// BaseURL overrides the provider's default endpoint when set.
	BaseURL string
}

// HasAPIKey reports whether a usable key is present.
func (c Credentials) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// TextRequest carries the generic generation parameters.
// Optional numbers are pointers: nil means "not set" and is never sent as zero.
type TextRequest struct {
	Credentials

	// ModelID is the provider-specific model identifier.
	ModelID string

	// Messages is the ordered conversation, forwarded unchanged.
	Messages []messages.Message

	// Temperature controls sampling randomness.
	Temperature *float64

	// MaxOutputTokens caps the length of the response.
	MaxOutputTokens *int64

	// ContextWindowTokens is informational only and never enforced.
	ContextWindowTokens *int64

	// Prevents unkeyed literals
	_ struct{}
}

// Validate checks the parameters that must be well-formed before a request
// can be built. Credentials are checked separately by the client factory.
func (r TextRequest) Validate(providerName string) error {
	var err error
	if strings.TrimSpace(r.ModelID) == "" {
		err = errors.Join(err, &ConfigurationError{Provider: providerName, Field: "ModelID", Err: ErrMissingModel})
	}
	for i, msg := range r.Messages {
		if merr := msg.Validate(); merr != nil {
			err = errors.Join(err, &ConfigurationError{Provider: providerName, Field: fmt.Sprintf("Messages[%d]", i), Err: merr})
		}
	}
	return err
}

// ObjectRequest is a TextRequest constrained by a schema.
type ObjectRequest struct {
	TextRequest

	// Schema describes the shape the generated object must satisfy.
	Schema *jsonschema.Schema

	// ObjectName names the output for the provider; defaults to DefaultObjectName.
	ObjectName string

	// ObjectDescription is an optional hint sent along with the schema.
	ObjectDescription string

	// MaxRetries is the number of re-prompts after an answer fails schema
	// validation. nil means DefaultObjectRetries; zero disables retries.
	MaxRetries *int
}

// Name returns the object name, falling back to DefaultObjectName.
func (r ObjectRequest) Name() string {
	if strings.TrimSpace(r.ObjectName) == "" {
		return DefaultObjectName
	}
	return r.ObjectName
}

// Retries returns the effective retry budget.
func (r ObjectRequest) Retries() int {
	if r.MaxRetries == nil {
		return DefaultObjectRetries
	}
	return *r.MaxRetries
}

// Validate extends TextRequest.Validate with the object specific parameters.
func (r ObjectRequest) Validate(providerName string) error {
	err := r.TextRequest.Validate(providerName)
	if r.Schema == nil {
		err = errors.Join(err, &ConfigurationError{Provider: providerName, Field: "Schema", Err: ErrMissingSchema})
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		err = errors.Join(err, &ConfigurationError{Provider: providerName, Field: "MaxRetries", Err: ErrInvalidRetries})
	}
	return err
}

// TextResult is the normalized outcome of a text generation.
type TextResult struct {
	RequestID    uuid.UUID `json:"request_id"`
	Text         string    `json:"text"`
	Usage        *Usage    `json:"usage,omitempty"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Citations    []string  `json:"citations,omitempty"`
}

// ObjectResult is the normalized outcome of an object generation.
type ObjectResult struct {
	RequestID uuid.UUID

	// Object is the decoded JSON value (maps, slices, float64, string, bool).
	Object any

	// Raw is the JSON document the object was decoded from.
	Raw []byte

	Usage *Usage

	// Attempts counts the model calls it took to get a valid object.
	Attempts int
}

// NewRequestID returns a time ordered identifier for a single call.
func NewRequestID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for optional request fields.
func Int(v int64) *int64 {
	return &v
}

// Retries returns a pointer to n, for ObjectRequest.MaxRetries.
func Retries(n int) *int {
	return &n
}
