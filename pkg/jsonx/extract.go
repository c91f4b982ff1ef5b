package jsonx

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// ErrNoJSON is returned when the content holds nothing that looks like JSON.
var ErrNoJSON = errors.New("no JSON document found")

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenced     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
)

// ExtractJSON returns the JSON document embedded in content.
//
// Models asked for structured output frequently wrap the answer in markdown
// fences, prefix it with prose or a <think> block, or emit almost-valid JSON.
// The first object or array found is returned; when it does not parse it is
// run through jsonrepair before giving up.
func ExtractJSON(content string) (string, error) {
	candidate := strings.TrimSpace(thinkBlock.ReplaceAllString(content, ""))
	if m := fenced.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if candidate == "" {
		return "", ErrNoJSON
	}
	if gjson.Valid(candidate) {
		return candidate, nil
	}

	if sliced, ok := sliceDocument(candidate); ok {
		if gjson.Valid(sliced) {
			return sliced, nil
		}
		candidate = sliced
	} else if !strings.ContainsAny(candidate, "{[") {
		return "", ErrNoJSON
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", fmt.Errorf("repair json: %w", err)
	}
	if !gjson.Valid(repaired) {
		return "", fmt.Errorf("repaired content is still not valid json: %w", ErrNoJSON)
	}
	return repaired, nil
}

// Decode extracts the JSON document from content and unmarshals it into v.
// It returns the extracted document so callers can keep the raw form.
func Decode(content string, v any) ([]byte, error) {
	doc, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	raw := []byte(doc)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return raw, nil
}

// sliceDocument cuts from the first opening brace or bracket to the last
// matching closing one.
func sliceDocument(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s[start:], true
	}
	return s[start : end+1], true
}
