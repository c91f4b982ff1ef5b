package perplexity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/casualjim/pplx/internal/metrics"
	"github.com/casualjim/pplx/internal/schemacheck"
	"github.com/casualjim/pplx/pkg/slogx"
	"github.com/casualjim/pplx/provider"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	// ProviderName is the human readable name used in errors and logs.
	ProviderName = "Perplexity"

	// DefaultBaseURL is the public Perplexity API endpoint.
	DefaultBaseURL = "https://api.perplexity.ai"
)

// Operation labels used in metrics.
const (
	opGenerateText   = "generate_text"
	opStreamText     = "stream_text"
	opGenerateObject = "generate_object"
)

var _ provider.Provider = (*Provider)(nil)

// Provider talks to Perplexity through its OpenAI-compatible chat completions
// API. It only holds configuration; every call builds its own client from the
// credentials in the request.
type Provider struct {
	logger         *slog.Logger
	baseURL        string
	requestOptions []option.RequestOption
	limiter        *rate.Limiter
	metrics        *metrics.Collector
}

// WithLogger sets the logger. Defaults to slog.Default().
var WithLogger = opts.ForName[Provider, *slog.Logger]("logger")

// WithBaseURL overrides DefaultBaseURL for calls whose credentials carry none.
var WithBaseURL = opts.ForName[Provider, string]("baseURL")

// WithRequestOptions adds SDK request options to every call, e.g. a custom
// http client or extra headers.
func WithRequestOptions(options ...option.RequestOption) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error {
		p.requestOptions = append(p.requestOptions, options...)
		return nil
	})
}

// WithSearchDomains restricts web search to the given domains. A domain
// prefixed with "-" is excluded instead.
func WithSearchDomains(domains ...string) opts.Option[Provider] {
	return WithRequestOptions(option.WithJSONSet("search_domain_filter", domains))
}

// WithSearchRecency limits search results to a time window: "hour", "day",
// "week" or "month".
func WithSearchRecency(window string) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error {
		switch window {
		case "hour", "day", "week", "month":
		default:
			return &provider.ConfigurationError{Provider: ProviderName, Field: "SearchRecency", Err: errors.New("expected hour, day, week or month")}
		}
		p.requestOptions = append(p.requestOptions, option.WithJSONSet("search_recency_filter", window))
		return nil
	})
}

// WithRateLimiter makes every outgoing request wait for limiter first. The
// limiter is shared by all calls made through the provider, including object
// generation re-prompts.
func WithRateLimiter(limiter *rate.Limiter) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error {
		p.limiter = limiter
		return nil
	})
}

// WithMetrics registers request and token metrics with reg under the "pplx"
// namespace.
func WithMetrics(reg prometheus.Registerer) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error {
		p.metrics = metrics.NewCollector("pplx", reg)
		return nil
	})
}

// New creates a Perplexity provider. It panics when an option fails to apply.
func New(options ...opts.Option[Provider]) *Provider {
	p := &Provider{baseURL: DefaultBaseURL}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slogx.LoggerName("perplexity"))
	return p
}

func (p *Provider) Name() string {
	return ProviderName
}

// GenerateText issues one chat completion. Configuration problems come back
// as *provider.ConfigurationError; transport failures are returned unchanged.
func (p *Provider) GenerateText(ctx context.Context, req provider.TextRequest) (result *provider.TextResult, err error) {
	start := time.Now()
	defer func() { p.observe(opGenerateText, req.ModelID, start, err) }()

	requestID := provider.NewRequestID()
	log := p.logger.With(slogx.RequestID(requestID))
	log.DebugContext(ctx, "Generating Perplexity text", slog.String("model", req.ModelID))

	tr, err := p.prepare(ctx, log, req)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity generateText failed", slogx.Error(err))
		return nil, err
	}
	params, err := buildChatParams(req)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity generateText failed", slogx.Error(err))
		return nil, err
	}

	chat, err := tr.generate(ctx, params)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity generateText failed", slogx.Error(err))
		return nil, err
	}

	raw := chat.JSON.RawJSON()
	result = &provider.TextResult{
		RequestID: requestID,
		Usage:     normalizeUsage(ctx, log, raw),
		Citations: citations(raw),
	}
	if len(chat.Choices) > 0 {
		result.Text = chat.Choices[0].Message.Content
		result.FinishReason = string(chat.Choices[0].FinishReason)
	}
	p.recordTokens(req.ModelID, result.Usage)
	log.DebugContext(ctx, "Perplexity generateText result received",
		slog.String("finish_reason", result.FinishReason),
		usageAttr(result.Usage),
	)
	return result, nil
}

// StreamText starts a streaming completion and returns once the stream is
// established. Failures while consuming the stream are delivered by the
// stream and are not logged or wrapped here.
func (p *Provider) StreamText(ctx context.Context, req provider.TextRequest) (_ *provider.TextStream, err error) {
	start := time.Now()
	defer func() { p.observe(opStreamText, req.ModelID, start, err) }()

	requestID := provider.NewRequestID()
	log := p.logger.With(slogx.RequestID(requestID))
	log.DebugContext(ctx, "Streaming Perplexity text", slog.String("model", req.ModelID))

	tr, err := p.prepare(ctx, log, req)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity streamText failed", slogx.Error(err))
		return nil, err
	}
	params, err := buildChatParams(req)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity streamText failed", slogx.Error(err))
		return nil, err
	}

	strm, err := tr.stream(ctx, params)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity streamText failed", slogx.Error(err))
		return nil, err
	}
	return provider.NewTextStream(requestID, newStreamSource(ctx, requestID, strm, log, func(u *provider.Usage) {
		p.recordTokens(req.ModelID, u)
	})), nil
}

// GenerateObject asks for a JSON value matching req.Schema. Configuration
// problems come back as *provider.ConfigurationError before any request is
// made; every later failure is a *provider.StructuredOutputError carrying the
// structured output disclaimer.
func (p *Provider) GenerateObject(ctx context.Context, req provider.ObjectRequest) (_ *provider.ObjectResult, err error) {
	start := time.Now()
	defer func() { p.observe(opGenerateObject, req.ModelID, start, err) }()

	requestID := provider.NewRequestID()
	name := req.Name()
	log := p.logger.With(slogx.RequestID(requestID), slog.String("object", name))
	log.DebugContext(ctx, "Attempting to generate Perplexity object", slog.String("model", req.ModelID))
	log.WarnContext(ctx, "generateObject support for Perplexity might be limited or experimental")

	tr, validator, params, err := p.prepareObject(ctx, log, req)
	if err != nil {
		log.ErrorContext(ctx, "Perplexity generateObject failed", slogx.Error(err))
		return nil, err
	}

	outcome, err := tr.generateObject(ctx, params, validator, req.Retries())
	p.recordTokens(req.ModelID, outcome.usage)
	if err != nil {
		wrapped := &provider.StructuredOutputError{
			Provider:   ProviderName,
			ObjectName: name,
			Reason:     classify(req.ModelID, err),
			Attempts:   outcome.attempts,
			Err:        err,
		}
		log.ErrorContext(ctx, "Perplexity generateObject failed",
			slog.String("reason", wrapped.Reason.String()),
			slog.Int("attempts", outcome.attempts),
			slogx.Error(err),
		)
		return nil, wrapped
	}
	log.DebugContext(ctx, "Perplexity generateObject result received",
		slog.Int("attempts", outcome.attempts),
		usageAttr(outcome.usage),
	)
	return &provider.ObjectResult{
		RequestID: requestID,
		Object:    outcome.object,
		Raw:       outcome.raw,
		Usage:     outcome.usage,
		Attempts:  outcome.attempts,
	}, nil
}

// prepare builds the per-call client and checks the request. The client is
// built first so a missing key is reported even for otherwise bad requests.
func (p *Provider) prepare(ctx context.Context, log *slog.Logger, req provider.TextRequest) (transport, error) {
	client, err := p.buildClient(req.Credentials)
	if err != nil {
		return transport{}, err
	}
	if err := req.Validate(ProviderName); err != nil {
		return transport{}, err
	}

	if req.ContextWindowTokens != nil {
		attrs := []any{slog.Int64("context_window_tokens", *req.ContextWindowTokens)}
		if info, ok := Lookup(req.ModelID); ok {
			attrs = append(attrs, slog.Int64("model_context_window", info.ContextWindow))
		}
		log.DebugContext(ctx, "Context window provided", attrs...)
	}
	return transport{client: client, limiter: p.limiter, logger: log}, nil
}

func (p *Provider) prepareObject(ctx context.Context, log *slog.Logger, req provider.ObjectRequest) (transport, *schemacheck.Validator, openai.ChatCompletionNewParams, error) {
	tr, err := p.prepare(ctx, log, req.TextRequest)
	if err != nil {
		return transport{}, nil, openai.ChatCompletionNewParams{}, err
	}
	if err := req.Validate(ProviderName); err != nil {
		return transport{}, nil, openai.ChatCompletionNewParams{}, err
	}
	validator, err := schemacheck.Compile(req.Schema)
	if err != nil {
		return transport{}, nil, openai.ChatCompletionNewParams{}, &provider.ConfigurationError{Provider: ProviderName, Field: "Schema", Err: err}
	}
	params, err := buildObjectParams(req)
	if err != nil {
		return transport{}, nil, openai.ChatCompletionNewParams{}, err
	}
	return tr, validator, params, nil
}

func (p *Provider) observe(operation, model string, start time.Time, err error) {
	status := metrics.StatusOK
	var cfgErr *provider.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		status = metrics.StatusConfigError
	case err != nil:
		status = metrics.StatusError
	}
	p.metrics.RecordRequest(ProviderName, model, operation, status, time.Since(start))
}

func (p *Provider) recordTokens(model string, usage *provider.Usage) {
	if usage != nil {
		p.metrics.RecordTokens(ProviderName, model, usage.InputTokens, usage.OutputTokens)
	}
}

// classify decides the reason of an object generation failure. The model
// catalog only turns rejected requests and unusable answers into
// ReasonUnsupported; outages and network failures stay transport failures.
func classify(modelID string, err error) provider.StructuredOutputReason {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return provider.ReasonTransport
	}
	info, known := Lookup(modelID)
	lacksSupport := known && !info.StructuredOutput

	if errors.Is(err, provider.ErrSchemaValidation) {
		if lacksSupport {
			return provider.ReasonUnsupported
		}
		return provider.ReasonValidation
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return provider.ReasonTransport
	}
	if apiErr.StatusCode != http.StatusBadRequest && apiErr.StatusCode != http.StatusUnprocessableEntity {
		return provider.ReasonTransport
	}
	if lacksSupport {
		return provider.ReasonUnsupported
	}
	msg := strings.ToLower(apiErr.Message + " " + apiErr.JSON.RawJSON())
	for _, hint := range []string{"response_format", "json_schema", "structured output", "not supported"} {
		if strings.Contains(msg, hint) {
			return provider.ReasonUnsupported
		}
	}
	return provider.ReasonTransport
}
