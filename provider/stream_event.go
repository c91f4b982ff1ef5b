package provider

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	delimJSON = []byte(`{"type":"delim"}`)
	chunkJSON = []byte(`{"type":"chunk"}`)
	doneJSON  = []byte(`{"type":"done"}`)
	errorJSON = []byte(`{"type":"error"}`)
)

// Delimiter values carried by Delim events.
const (
	DelimStart = "start"
	DelimEnd   = "end"
)

// StreamEvent is one item produced by a TextStream.
type StreamEvent interface {
	streamEvent()
}

// Delim marks the start and end of the generated content.
type Delim struct {
	RequestID uuid.UUID `json:"request_id"`
	Delim     string    `json:"delim"`
}

func (Delim) streamEvent() {}

// Chunk carries an incremental piece of generated text.
type Chunk struct {
	RequestID uuid.UUID       `json:"request_id"`
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Chunk) streamEvent() {}

// Done is the terminal event of a successful stream and carries the usage
// report, if the provider sent one.
type Done struct {
	RequestID    uuid.UUID       `json:"request_id"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Citations    []string        `json:"citations,omitempty"`
	Timestamp    strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Done) streamEvent() {}

// Error is the serializable form of a stream failure.
type Error struct {
	RequestID uuid.UUID       `json:"request_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("request_id: %s, timestamp: %s, error: %v", e.RequestID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// UnmarshalEvent decodes any of the stream events from its JSON form.
func UnmarshalEvent(data []byte) (StreamEvent, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}
	switch tpe := gjson.GetBytes(data, "type").String(); tpe {
	case "delim":
		var ev Delim
		err := ev.UnmarshalJSON(data)
		return ev, err
	case "chunk":
		var ev Chunk
		err := ev.UnmarshalJSON(data)
		return ev, err
	case "done":
		var ev Done
		err := ev.UnmarshalJSON(data)
		return ev, err
	case "error":
		var ev Error
		err := ev.UnmarshalJSON(data)
		return ev, err
	default:
		return nil, fmt.Errorf("unknown stream event type %q", tpe)
	}
}

func setRequestID(result []byte, id uuid.UUID) ([]byte, error) {
	return sjson.SetBytes(result, "request_id", id.String())
}

func setTimestamp(result []byte, ts strfmt.DateTime) ([]byte, error) {
	if ts.IsZero() {
		return result, nil
	}
	return sjson.SetBytes(result, "timestamp", ts.String())
}

func checkEnvelope(data []byte, expected string) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != expected {
		return fmt.Errorf("missing or invalid type, expected '%s'", expected)
	}
	return nil
}

func readRequestID(data []byte, dst *uuid.UUID) error {
	requestID := gjson.GetBytes(data, "request_id")
	if !requestID.Exists() {
		return errors.New("missing required field 'request_id'")
	}
	if err := dst.UnmarshalText([]byte(requestID.String())); err != nil {
		return fmt.Errorf("invalid request_id: %w", err)
	}
	return nil
}

func readTimestamp(data []byte, dst *strfmt.DateTime) error {
	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := dst.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	return nil
}

// MarshalJSON implements custom JSON marshaling for Delim
func (d Delim) MarshalJSON() ([]byte, error) {
	result, err := setRequestID(delimJSON, d.RequestID)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "delim", d.Delim)
}

// UnmarshalJSON implements custom JSON unmarshaling for Delim
func (d *Delim) UnmarshalJSON(data []byte) error {
	if err := checkEnvelope(data, "delim"); err != nil {
		return err
	}
	if err := readRequestID(data, &d.RequestID); err != nil {
		return err
	}
	delim := gjson.GetBytes(data, "delim")
	if !delim.Exists() {
		return errors.New("missing required field 'delim'")
	}
	d.Delim = delim.String()
	return nil
}

// MarshalJSON implements custom JSON marshaling for Chunk
func (c Chunk) MarshalJSON() ([]byte, error) {
	result, err := setRequestID(chunkJSON, c.RequestID)
	if err != nil {
		return nil, err
	}
	if result, err = sjson.SetBytes(result, "text", c.Text); err != nil {
		return nil, err
	}
	if result, err = setTimestamp(result, c.Timestamp); err != nil {
		return nil, err
	}
	if c.Meta.Exists() {
		if result, err = sjson.SetRawBytes(result, "meta", []byte(c.Meta.Raw)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Chunk
func (c *Chunk) UnmarshalJSON(data []byte) error {
	if err := checkEnvelope(data, "chunk"); err != nil {
		return err
	}
	if err := readRequestID(data, &c.RequestID); err != nil {
		return err
	}
	text := gjson.GetBytes(data, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	c.Text = text.String()
	if err := readTimestamp(data, &c.Timestamp); err != nil {
		return err
	}
	if meta := gjson.GetBytes(data, "meta"); meta.Exists() {
		c.Meta = meta
	}
	return nil
}

// MarshalJSON implements custom JSON marshaling for Done
func (d Done) MarshalJSON() ([]byte, error) {
	result, err := setRequestID(doneJSON, d.RequestID)
	if err != nil {
		return nil, err
	}
	if d.Usage != nil {
		usage, err := json.Marshal(d.Usage)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal usage: %w", err)
		}
		if result, err = sjson.SetRawBytes(result, "usage", usage); err != nil {
			return nil, err
		}
	}
	if d.FinishReason != "" {
		if result, err = sjson.SetBytes(result, "finish_reason", d.FinishReason); err != nil {
			return nil, err
		}
	}
	if len(d.Citations) > 0 {
		if result, err = sjson.SetBytes(result, "citations", d.Citations); err != nil {
			return nil, err
		}
	}
	return setTimestamp(result, d.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for Done
func (d *Done) UnmarshalJSON(data []byte) error {
	if err := checkEnvelope(data, "done"); err != nil {
		return err
	}
	if err := readRequestID(data, &d.RequestID); err != nil {
		return err
	}
	if usage := gjson.GetBytes(data, "usage"); usage.IsObject() {
		d.Usage = &Usage{}
		if err := json.Unmarshal([]byte(usage.Raw), d.Usage); err != nil {
			return fmt.Errorf("invalid usage: %w", err)
		}
	}
	d.FinishReason = gjson.GetBytes(data, "finish_reason").String()
	for _, c := range gjson.GetBytes(data, "citations").Array() {
		d.Citations = append(d.Citations, c.String())
	}
	return readTimestamp(data, &d.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for Error
func (e Error) MarshalJSON() ([]byte, error) {
	result, err := setRequestID(errorJSON, e.RequestID)
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		if result, err = sjson.SetBytes(result, "error", e.Err.Error()); err != nil {
			return nil, err
		}
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for Error
func (e *Error) UnmarshalJSON(data []byte) error {
	if err := checkEnvelope(data, "error"); err != nil {
		return err
	}
	if err := readRequestID(data, &e.RequestID); err != nil {
		return err
	}
	errMsg := gjson.GetBytes(data, "error")
	if !errMsg.Exists() {
		return errors.New("missing required field 'error'")
	}
	e.Err = errors.New(errMsg.String())
	return readTimestamp(data, &e.Timestamp)
}
