// Package slogx contains slog.Attr constructors used across the adapters so
// log records keep the same keys everywhere.
package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// KeyLoggerName is the key under which the component name is logged.
	KeyLoggerName = "logger"
	// KeyRequestID is the key for the per-call request identifier.
	KeyRequestID = "request_id"
)

// Error returns an attribute with the key "error" and the error's message.
// A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stringer creates an attribute from the string form of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName tags records with the component that emitted them.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// RequestID tags records with the identifier of a single generation call.
func RequestID(id uuid.UUID) slog.Attr {
	return slog.String(KeyRequestID, id.String())
}

// Tokens groups input and output token counts under "usage".
// Negative values mark counts the provider did not report.
func Tokens(input, output int64) slog.Attr {
	if input < 0 || output < 0 {
		return slog.Group("usage", slog.Bool("reported", false))
	}
	return slog.Group("usage",
		slog.Int64("input_tokens", input),
		slog.Int64("output_tokens", output),
	)
}
