package pplx

import (
	"errors"
	"os"
	"strings"

	"github.com/casualjim/pplx/pkg/messages"
	"github.com/casualjim/pplx/provider"
	"github.com/fogfish/opts"
)

// Environment variables read by FromEnv.
const (
	EnvAPIKey  = "PERPLEXITY_API_KEY"
	EnvBaseURL = "PERPLEXITY_BASE_URL"
)

var errEmptyPrompt = errors.New("prompt is empty")

// Request builds a TextRequest for a single prompt. Options run in order;
// the prompt is appended as the last user message.
func Request(model, prompt string, options ...opts.Option[provider.TextRequest]) (provider.TextRequest, error) {
	req := provider.TextRequest{ModelID: model}
	if err := opts.Apply(&req, options); err != nil {
		return provider.TextRequest{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return provider.TextRequest{}, &provider.ConfigurationError{Provider: "pplx", Field: "Prompt", Err: errEmptyPrompt}
	}
	req.Messages = append(req.Messages, messages.User(prompt))
	return req, nil
}

// FromEnv fills the credentials from PERPLEXITY_API_KEY and
// PERPLEXITY_BASE_URL. Values already set are kept.
func FromEnv() opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		if r.APIKey == "" {
			r.APIKey = os.Getenv(EnvAPIKey)
		}
		if r.BaseURL == "" {
			r.BaseURL = os.Getenv(EnvBaseURL)
		}
		return nil
	})
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		r.APIKey = key
		return nil
	})
}

// WithBaseURL points the request at another OpenAI-compatible endpoint.
func WithBaseURL(url string) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		r.BaseURL = url
		return nil
	})
}

// WithSystem puts a system message in front of the conversation.
func WithSystem(text string) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		r.Messages = append([]messages.Message{messages.System(text)}, r.Messages...)
		return nil
	})
}

// WithHistory appends earlier turns of the conversation.
func WithHistory(msgs ...messages.Message) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		r.Messages = append(r.Messages, msgs...)
		return nil
	})
}

// WithTemperature sets the sampling temperature. Zero is sent as zero.
func WithTemperature(v float64) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		r.Temperature = provider.Float(v)
		return nil
	})
}

// WithMaxOutputTokens caps the answer length.
func WithMaxOutputTokens(n int64) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		if n <= 0 {
			return &provider.ConfigurationError{Provider: "pplx", Field: "MaxOutputTokens", Err: errors.New("must be positive")}
		}
		r.MaxOutputTokens = provider.Int(n)
		return nil
	})
}

// WithContextWindow records the caller's context window. It is logged, never
// enforced.
func WithContextWindow(n int64) opts.Option[provider.TextRequest] {
	return opts.Type[provider.TextRequest](func(r *provider.TextRequest) error {
		r.ContextWindowTokens = provider.Int(n)
		return nil
	})
}
