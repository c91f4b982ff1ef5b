package provider

import "fmt"

// Usage is the normalized token accounting of one generation. Provider
// specific field names never leave the adapter; a nil *Usage means the
// provider did not report any.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns the sum of input and output tokens.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u Usage) String() string {
	return fmt.Sprintf("%d in / %d out", u.InputTokens, u.OutputTokens)
}

// SumUsage adds up the usage of several calls. The result is nil when any
// of them is nil: a partial total would under-report.
func SumUsage(usages ...*Usage) *Usage {
	if len(usages) == 0 {
		return nil
	}
	var total Usage
	for _, u := range usages {
		if u == nil {
			return nil
		}
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	return &total
}
