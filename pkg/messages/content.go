// Package messages provides the conversation message types handed to a
// provider: a role plus content that is either a plain string or a list of
// text and image parts.
package messages

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var jsonNull = []byte(`null`)

// ContentOrParts represents either a simple string content or a collection of content parts.
type ContentOrParts struct {
	Content string        // Raw string content, used when the message is just text
	Parts   []ContentPart // Text and image parts
	_       struct{}      // require keyed usage
}

// Text flattens the content into a single string. Image parts are skipped.
func (c ContentOrParts) Text() string {
	if c.Content != "" || len(c.Parts) == 0 {
		return c.Content
	}
	var b strings.Builder
	for _, part := range c.Parts {
		if tp, ok := part.(TextContentPart); ok {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// IsEmpty reports whether there is neither text nor parts.
func (c ContentOrParts) IsEmpty() bool {
	return strings.TrimSpace(c.Content) == "" && len(c.Parts) == 0
}

// MarshalJSON returns the Content as a JSON string if it's non-empty,
// otherwise the Parts as a JSON array, or null when both are empty.
func (c ContentOrParts) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(c.Content) != "" {
		return json.Marshal(c.Content)
	}
	if c.Parts == nil {
		return jsonNull, nil
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON accepts either a string or an array of typed parts.
func (c *ContentOrParts) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)
	if jv.Type == gjson.Null {
		return nil
	}
	if !jv.IsArray() {
		c.Content = jv.String()
		return nil
	}

	aj := jv.Array()
	parts := make([]ContentPart, len(aj))
	for idx, ajv := range aj {
		switch tpe := ajv.Get("type").String(); tpe {
		case "text":
			var part TextContentPart
			if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
				return fmt.Errorf("invalid text part at %d: %w", idx, err)
			}
			parts[idx] = part
		case "image", "image_url":
			var part ImageContentPart
			if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
				return fmt.Errorf("invalid image part at %d: %w", idx, err)
			}
			parts[idx] = part
		default:
			return fmt.Errorf("content part at %d has an unknown type %q", idx, tpe)
		}
	}
	c.Parts = parts
	return nil
}

// ContentPart marks structs as valid content parts.
// Implementations are TextContentPart and ImageContentPart.
type ContentPart interface {
	contentPart()
}

// Text creates a new TextContentPart.
func Text(text string) TextContentPart {
	return TextContentPart{Text: text}
}

// TextContentPart is a text-only content part.
type TextContentPart struct {
	Text string   `json:"text"`
	_    struct{} // require keyed usage
}

func (TextContentPart) contentPart() {}

var tcpJSON = []byte(`{"type":"text"}`)

func (t TextContentPart) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(tcpJSON, "text", t.Text)
}

func (t *TextContentPart) UnmarshalJSON(input []byte) error {
	text := gjson.GetBytes(input, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	t.Text = text.String()
	return nil
}

// Image creates a new ImageContentPart for the given URL (http(s) or data URI).
func Image(url string) ImageContentPart {
	return ImageContentPart{URL: url}
}

// ImageContentPart references an image by URL.
type ImageContentPart struct {
	URL    string   `json:"image_url"`
	Detail string   `json:"detail,omitempty"`
	_      struct{} // require keyed usage
}

func (ImageContentPart) contentPart() {}

var icpJSON = []byte(`{"type":"image"}`)

func (i ImageContentPart) MarshalJSON() ([]byte, error) {
	out, err := sjson.SetBytes(icpJSON, "image_url", i.URL)
	if err != nil {
		return nil, err
	}
	if i.Detail != "" {
		return sjson.SetBytes(out, "detail", i.Detail)
	}
	return out, nil
}

// UnmarshalJSON accepts both the flat form {"image_url":"..."} and the
// OpenAI wire form {"image_url":{"url":"...","detail":"..."}}.
func (i *ImageContentPart) UnmarshalJSON(input []byte) error {
	uri := gjson.GetBytes(input, "image_url")
	if !uri.Exists() {
		return errors.New("missing required field 'image_url'")
	}
	if uri.IsObject() {
		i.URL = uri.Get("url").String()
		i.Detail = uri.Get("detail").String()
		return nil
	}
	i.URL = uri.String()
	i.Detail = gjson.GetBytes(input, "detail").String()
	return nil
}
