package provider

import (
	"errors"
	"fmt"
)

// StructuredOutputDisclaimer is appended to every object generation failure.
const StructuredOutputDisclaimer = "Structured output might not be fully supported."

var (
	ErrMissingAPIKey  = errors.New("API key is required")
	ErrMissingModel   = errors.New("model id is required")
	ErrMissingSchema  = errors.New("schema is required")
	ErrInvalidRetries = errors.New("max retries must not be negative")

	// ErrStreamConsumed is yielded when a TextStream is iterated a second time.
	ErrStreamConsumed = errors.New("stream already consumed")

	// ErrStreamTruncated is yielded when a stream ends without the provider
	// signalling completion, e.g. because the connection dropped.
	ErrStreamTruncated = errors.New("stream ended before completion")

	// ErrSchemaValidation marks model output that did not satisfy the schema.
	ErrSchemaValidation = errors.New("object does not match schema")

	// ErrStructuredOutputUnsupported matches StructuredOutputErrors whose
	// reason is ReasonUnsupported.
	ErrStructuredOutputUnsupported = errors.New("structured output unsupported")
)

// ConfigurationError reports a call that cannot be issued as configured:
// missing credentials or invalid parameters. It is always raised before any
// network activity and retrying it is pointless.
type ConfigurationError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s: %v", e.Provider, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StructuredOutputReason classifies why object generation failed.
type StructuredOutputReason int

const (
	// ReasonTransport means the underlying call itself failed.
	ReasonTransport StructuredOutputReason = iota
	// ReasonValidation means every attempt produced output that did not
	// decode or did not satisfy the schema.
	ReasonValidation
	// ReasonUnsupported means the provider or model rejected structured output.
	ReasonUnsupported
)

func (r StructuredOutputReason) String() string {
	switch r {
	case ReasonTransport:
		return "transport"
	case ReasonValidation:
		return "validation"
	case ReasonUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// StructuredOutputError wraps any object generation failure. Callers branch
// on Reason (or errors.Is with ErrStructuredOutputUnsupported) instead of
// parsing the message.
type StructuredOutputError struct {
	Provider   string
	ObjectName string
	Reason     StructuredOutputReason
	Attempts   int
	Err        error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("failed to generate object with %s: %v. %s", e.Provider, e.Err, StructuredOutputDisclaimer)
}

func (e *StructuredOutputError) Unwrap() error {
	return e.Err
}

func (e *StructuredOutputError) Is(target error) bool {
	return target == ErrStructuredOutputUnsupported && e.Reason == ReasonUnsupported
}

// Unsupported reports whether err is a structured output failure caused by
// the provider or model not supporting it.
func Unsupported(err error) bool {
	return errors.Is(err, ErrStructuredOutputUnsupported)
}
