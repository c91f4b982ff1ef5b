package perplexity

import (
	"context"
	"log/slog"
	"time"

	"github.com/casualjim/pplx/provider"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/tidwall/gjson"
)

// streamSource turns the SDK's chunk stream into provider stream events:
// a start delimiter, one Chunk per content delta, an end delimiter and a
// Done event with the usage report of the last chunk that carried one.
// A stream only completes once a chunk carried a finish reason; ending
// earlier is reported through Err and produces no Done.
type streamSource struct {
	ctx       context.Context
	requestID uuid.UUID
	strm      *ssestream.Stream[openai.ChatCompletionChunk]
	logger    *slog.Logger
	onDone    func(*provider.Usage)

	pending []provider.StreamEvent
	current provider.StreamEvent
	started bool
	ended   bool
	err     error

	usage        *provider.Usage
	finishReason string
	citations    []string
}

var _ provider.EventSource = (*streamSource)(nil)

// newStreamSource wraps strm. onDone, when set, runs once with the final
// usage report after the stream completed normally.
func newStreamSource(ctx context.Context, requestID uuid.UUID, strm *ssestream.Stream[openai.ChatCompletionChunk], logger *slog.Logger, onDone func(*provider.Usage)) *streamSource {
	return &streamSource{ctx: ctx, requestID: requestID, strm: strm, logger: logger, onDone: onDone}
}

func (s *streamSource) Next() bool {
	for len(s.pending) == 0 {
		if s.ended {
			return false
		}
		if !s.strm.Next() {
			s.ended = true
			if s.strm.Err() != nil {
				return false
			}
			// The SDK reports a failed read of the body as a clean end.
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return false
			}
			if s.finishReason == "" {
				s.err = provider.ErrStreamTruncated
				return false
			}
			s.finish()
			continue
		}
		s.consume(s.strm.Current())
	}
	s.current, s.pending = s.pending[0], s.pending[1:]
	return true
}

func (s *streamSource) Current() provider.StreamEvent {
	return s.current
}

func (s *streamSource) Err() error {
	if err := s.strm.Err(); err != nil {
		return err
	}
	return s.err
}

func (s *streamSource) Close() error {
	return s.strm.Close()
}

func (s *streamSource) consume(chunk openai.ChatCompletionChunk) {
	if !s.started {
		s.started = true
		s.pending = append(s.pending, provider.Delim{RequestID: s.requestID, Delim: provider.DelimStart})
	}

	raw := chunk.JSON.RawJSON()
	if u := normalizeUsage(s.ctx, s.logger, raw); u != nil {
		s.usage = u
	}
	if c := citations(raw); len(c) > 0 {
		s.citations = c
	}
	if len(chunk.Choices) == 0 {
		return
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		s.finishReason = string(choice.FinishReason)
	}
	if choice.Delta.Content == "" {
		return
	}
	ev := provider.Chunk{
		RequestID: s.requestID,
		Text:      choice.Delta.Content,
		Timestamp: strfmt.DateTime(time.Now()),
	}
	if gjson.Get(raw, "id").Exists() {
		ev.Meta = gjson.Get(raw, "{id,model}")
	}
	s.pending = append(s.pending, ev)
}

func (s *streamSource) finish() {
	if !s.started {
		s.pending = append(s.pending, provider.Delim{RequestID: s.requestID, Delim: provider.DelimStart})
	}
	s.pending = append(s.pending,
		provider.Delim{RequestID: s.requestID, Delim: provider.DelimEnd},
		provider.Done{
			RequestID:    s.requestID,
			Usage:        s.usage,
			FinishReason: s.finishReason,
			Citations:    s.citations,
			Timestamp:    strfmt.DateTime(time.Now()),
		},
	)
	s.logger.DebugContext(s.ctx, "Perplexity stream completed",
		slog.String("finish_reason", s.finishReason),
		usageAttr(s.usage),
	)
	if s.onDone != nil {
		s.onDone(s.usage)
	}
}
