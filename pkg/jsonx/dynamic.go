// Package jsonx holds JSON helpers shared by the provider adapters: turning
// typed values into the dynamic maps the wire clients expect, and digging a
// JSON document out of free-form model output.
package jsonx

import json "github.com/goccy/go-json"

// ToDynamicJSON converts any Go value to a dynamic JSON object represented as a map[string]any.
// It round-trips the value through its JSON encoding, so custom marshalers
// (for example a reflected JSON schema) are honored.
func ToDynamicJSON(val any) (map[string]any, error) {
	result := make(map[string]any)
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
