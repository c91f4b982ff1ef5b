package perplexity

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/casualjim/pplx/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// buildClient creates a client for a single call. Nothing is cached: a key
// rotated between calls is picked up on the next one.
//
// The SDK's own retries are disabled so a failed call surfaces once, unless a
// request option given to New turns them back on.
func (p *Provider) buildClient(creds provider.Credentials) (*openai.Client, error) {
	if !creds.HasAPIKey() {
		return nil, &provider.ConfigurationError{Provider: ProviderName, Field: "APIKey", Err: provider.ErrMissingAPIKey}
	}

	baseURL := p.baseURL
	if strings.TrimSpace(creds.BaseURL) != "" {
		baseURL = strings.TrimSpace(creds.BaseURL)
	}
	baseURL, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, &provider.ConfigurationError{Provider: ProviderName, Field: "BaseURL", Err: err}
	}

	options := make([]option.RequestOption, 0, len(p.requestOptions)+3)
	options = append(options, option.WithMaxRetries(0))
	options = append(options, p.requestOptions...)
	options = append(options,
		option.WithAPIKey(strings.TrimSpace(creds.APIKey)),
		option.WithBaseURL(baseURL),
	)
	return openai.NewClient(options...), nil
}

// normalizeBaseURL checks the endpoint and makes sure it ends in a slash, so
// relative paths like "chat/completions" resolve below it instead of
// replacing its last segment.
func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q: expected an absolute http(s) url", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}
