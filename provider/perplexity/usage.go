package perplexity

import (
	"context"
	"log/slog"

	"github.com/casualjim/pplx/pkg/slogx"
	"github.com/casualjim/pplx/provider"
	"github.com/tidwall/gjson"
)

// normalizeUsage reads the usage block of a raw completion or chunk.
//
// The decoded SDK struct cannot tell "zero tokens" from "not reported", so
// presence is decided on the raw JSON. Malformed counts are dropped rather
// than guessed at.
func normalizeUsage(ctx context.Context, logger *slog.Logger, raw string) *provider.Usage {
	usage := gjson.Get(raw, "usage")
	if !usage.IsObject() {
		return nil
	}
	prompt, completion := usage.Get("prompt_tokens"), usage.Get("completion_tokens")
	if !isCount(prompt) || !isCount(completion) {
		logger.WarnContext(ctx, "Perplexity returned an unusable usage report",
			slog.String("usage", usage.Raw),
		)
		return nil
	}
	return &provider.Usage{
		InputTokens:  prompt.Int(),
		OutputTokens: completion.Int(),
	}
}

func isCount(v gjson.Result) bool {
	return v.Type == gjson.Number && v.Num >= 0 && v.Num == float64(int64(v.Num))
}

// citations returns the source urls Perplexity attaches to search backed
// answers. Newer responses carry search_results instead of citations.
func citations(raw string) []string {
	var result []string
	if c := gjson.Get(raw, "citations"); c.IsArray() {
		for _, v := range c.Array() {
			if s := v.String(); s != "" {
				result = append(result, s)
			}
		}
		return result
	}
	for _, v := range gjson.Get(raw, "search_results.#.url").Array() {
		if s := v.String(); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func usageAttr(u *provider.Usage) slog.Attr {
	if u == nil {
		return slogx.Tokens(-1, -1)
	}
	return slogx.Tokens(u.InputTokens, u.OutputTokens)
}
