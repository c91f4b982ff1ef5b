package provider

import (
	"iter"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// EventSource is the provider side of a TextStream. Adapters translate their
// native stream into this cursor; TextStream adds the uniform consumption
// rules on top.
type EventSource interface {
	// Next advances to the next event and reports whether there is one.
	Next() bool
	// Current returns the event Next advanced to.
	Current() StreamEvent
	// Err returns the error that stopped iteration, if any.
	Err() error
	// Close releases the underlying connection. It may be called more than once.
	Close() error
}

// TextStream is a live generation. It produces a lazy, finite,
// non-restartable sequence of events that ends with a Done event carrying
// the usage report. Failures after the stream started surface as the error
// value of the iterator; nothing is retried.
type TextStream struct {
	requestID uuid.UUID
	src       EventSource

	mu       sync.Mutex
	consumed bool
	done     *Done

	closeOnce sync.Once
	closeErr  error
}

// NewTextStream wraps an adapter's event source.
func NewTextStream(requestID uuid.UUID, src EventSource) *TextStream {
	return &TextStream{requestID: requestID, src: src}
}

// RequestID identifies the call that started the stream.
func (s *TextStream) RequestID() uuid.UUID {
	return s.requestID
}

// Events yields every event in order. The stream can only be iterated once;
// a second iteration yields ErrStreamConsumed. Breaking out of the loop
// closes the stream.
func (s *TextStream) Events() iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		if !s.claim() {
			yield(nil, ErrStreamConsumed)
			return
		}
		defer s.Close() //nolint:errcheck

		for s.src.Next() {
			ev := s.src.Current()
			if d, ok := ev.(Done); ok {
				s.finish(d)
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := s.src.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Text yields only the generated text fragments.
func (s *TextStream) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for ev, err := range s.Events() {
			if err != nil {
				yield("", err)
				return
			}
			if c, ok := ev.(Chunk); ok && c.Text != "" {
				if !yield(c.Text, nil) {
					return
				}
			}
		}
	}
}

// Collect drains the stream into a TextResult. On a mid-stream failure the
// text received so far is returned together with the error.
func (s *TextStream) Collect() (*TextResult, error) {
	result := &TextResult{RequestID: s.requestID}
	var text strings.Builder
	for ev, err := range s.Events() {
		if err != nil {
			result.Text = text.String()
			return result, err
		}
		switch e := ev.(type) {
		case Chunk:
			text.WriteString(e.Text)
		case Done:
			result.Usage = e.Usage
			result.FinishReason = e.FinishReason
			result.Citations = e.Citations
		}
	}
	result.Text = text.String()
	return result, nil
}

// Usage returns the usage report delivered with the Done event. It is nil
// until the stream completed, and stays nil when the provider sent none.
func (s *TextStream) Usage() *Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return nil
	}
	return s.done.Usage
}

// Completed reports whether the Done event has been seen.
func (s *TextStream) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Close abandons the stream and releases the connection.
func (s *TextStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.src.Close()
	})
	return s.closeErr
}

func (s *TextStream) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumed {
		return false
	}
	s.consumed = true
	return true
}

func (s *TextStream) finish(d Done) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = &d
}
