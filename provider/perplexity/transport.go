package perplexity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/casualjim/pplx/internal/schemacheck"
	"github.com/casualjim/pplx/pkg/jsonx"
	"github.com/casualjim/pplx/pkg/slogx"
	"github.com/casualjim/pplx/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
	"golang.org/x/time/rate"
)

var errNoChoices = errors.New("response contained no choices")

// transport is the OpenAI-compatible generation capability the adapter
// delegates to. It knows nothing about the provider contract's error rules.
type transport struct {
	client  *openai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// wait blocks until the limiter admits one more request.
func (t transport) wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

func (t transport) generate(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.client.Chat.Completions.New(ctx, params)
}

// stream opens a streaming completion. Failures to establish the stream are
// returned here; later ones surface through the stream itself.
func (t transport) stream(ctx context.Context, params openai.ChatCompletionNewParams) (*ssestream.Stream[openai.ChatCompletionChunk], error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	strm := t.client.Chat.Completions.NewStreaming(ctx, params)
	if err := strm.Err(); err != nil {
		strm.Close() //nolint:errcheck
		return nil, err
	}
	return strm, nil
}

type objectOutcome struct {
	object   any
	raw      []byte
	usage    *provider.Usage
	attempts int
}

// generateObject asks for a schema constrained answer, re-prompting with the
// validation error up to maxRetries times. Transport failures end the loop at
// once; the outcome still reports how many attempts were made.
func (t transport) generateObject(ctx context.Context, params openai.ChatCompletionNewParams, validator *schemacheck.Validator, maxRetries int) (objectOutcome, error) {
	var (
		outcome objectOutcome
		usages  []*provider.Usage
		lastErr error
	)
	for outcome.attempts < maxRetries+1 {
		outcome.attempts++

		chat, err := t.generate(ctx, params)
		if err != nil {
			return outcome, err
		}
		usages = append(usages, normalizeUsage(ctx, t.logger, chat.JSON.RawJSON()))
		outcome.usage = provider.SumUsage(usages...)

		content, verr := decodeCandidate(chat, validator, &outcome)
		if verr == nil {
			return outcome, nil
		}
		lastErr = fmt.Errorf("%w: %v", provider.ErrSchemaValidation, verr)
		t.logger.WarnContext(ctx, "Perplexity object failed validation",
			slog.Int("attempt", outcome.attempts),
			slog.Int("max_attempts", maxRetries+1),
			slogx.Error(verr),
		)

		next := slices.Clone(params.Messages.Value)
		if content != "" {
			next = append(next, assistantText(content))
		}
		next = append(next, userText(repairPrompt(verr)))
		params.Messages = openai.F(next)
	}
	return outcome, lastErr
}

func decodeCandidate(chat *openai.ChatCompletion, validator *schemacheck.Validator, outcome *objectOutcome) (string, error) {
	if len(chat.Choices) == 0 {
		return "", errNoChoices
	}
	content := chat.Choices[0].Message.Content
	if content == "" && chat.Choices[0].Message.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", chat.Choices[0].Message.Refusal)
	}

	doc, err := jsonx.ExtractJSON(content)
	if err != nil {
		return content, err
	}
	object, err := validator.ValidateJSON([]byte(doc))
	if err != nil {
		return content, err
	}
	outcome.object = object
	outcome.raw = []byte(doc)
	return content, nil
}

func repairPrompt(cause error) string {
	return fmt.Sprintf(
		"Your previous answer could not be used: %v. Reply again with only a JSON value that satisfies the requested schema, without any commentary.",
		cause,
	)
}
