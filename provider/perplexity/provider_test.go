package perplexity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/casualjim/pplx/pkg/messages"
	"github.com/casualjim/pplx/provider"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type cityReport struct {
	City string `json:"city"`
	Temp int    `json:"temp"`
}

// recorder captures the request bodies the stub endpoint received.
type recorder struct {
	mu     sync.Mutex
	calls  atomic.Int32
	bodies []string
	auth   []string
}

func (r *recorder) record(req *http.Request) string {
	body, _ := io.ReadAll(req.Body)
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies = append(r.bodies, string(body))
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	return string(body)
}

func (r *recorder) body(i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[i]
}

func setupTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body string)) (*Provider, *recorder) {
	t.Helper()
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := rec.record(r)
		handler(w, r, body)
	}))
	t.Cleanup(server.Close)

	p := New(
		WithBaseURL(server.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return p, rec
}

func textRequest(key string) provider.TextRequest {
	return provider.TextRequest{
		Credentials: provider.Credentials{APIKey: key},
		ModelID:     Sonar,
		Messages:    []messages.Message{messages.User("hi")},
	}
}

func objectRequest(key string) provider.ObjectRequest {
	return provider.ObjectRequest{
		TextRequest: textRequest(key),
		Schema:      provider.SchemaFor[cityReport](),
		ObjectName:  "report",
	}
}

func completion(t *testing.T, content string, usage string) string {
	t.Helper()
	doc := `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"sonar","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant"}}]}`
	doc, err := sjson.Set(doc, "choices.0.message.content", content)
	require.NoError(t, err)
	if usage != "" {
		doc, err = sjson.SetRaw(doc, "usage", usage)
		require.NoError(t, err)
	}
	return doc
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func writeSSE(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	for _, c := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", c)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestNew(t *testing.T) {
	p := New()
	assert.Equal(t, ProviderName, p.Name())
	assert.Equal(t, DefaultBaseURL, p.baseURL)
	assert.NotNil(t, p.logger)
}

func TestNew_InvalidOptionPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(WithSearchRecency("decade"))
	})
}

func TestProvider_GenerateText(t *testing.T) {
	p, rec := setupTestServer(t, func(w http.ResponseWriter, r *http.Request, _ string) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		writeJSON(w, http.StatusOK, completion(t, "Hello", `{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}`))
	})

	result, err := p.GenerateText(context.Background(), textRequest("k"))
	require.NoError(t, err)

	assert.Equal(t, "Hello", result.Text)
	assert.Equal(t, "stop", result.FinishReason)
	require.NotNil(t, result.Usage)
	assert.Equal(t, provider.Usage{InputTokens: 5, OutputTokens: 2}, *result.Usage)
	assert.NotEqual(t, uuid.Nil, result.RequestID)

	require.EqualValues(t, 1, rec.calls.Load())
	assert.Equal(t, "Bearer k", rec.auth[0])
	body := rec.body(0)
	assert.Equal(t, Sonar, gjson.Get(body, "model").String())
	assert.Equal(t, "user", gjson.Get(body, "messages.0.role").String())
	assert.Equal(t, "hi", gjson.Get(body, "messages.0.content.0.text").String())
	assert.False(t, gjson.Get(body, "temperature").Exists())
	assert.False(t, gjson.Get(body, "max_tokens").Exists())
	assert.False(t, gjson.Get(body, "stream").Exists())
}

func TestProvider_GenerateText_OptionalParameters(t *testing.T) {
	p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, completion(t, "ok", ""))
	})

	req := textRequest("k")
	req.Temperature = provider.Float(0)
	req.MaxOutputTokens = provider.Int(64)
	req.ContextWindowTokens = provider.Int(4096)

	_, err := p.GenerateText(context.Background(), req)
	require.NoError(t, err)

	body := rec.body(0)
	assert.True(t, gjson.Get(body, "temperature").Exists())
	assert.Equal(t, float64(0), gjson.Get(body, "temperature").Float())
	assert.EqualValues(t, 64, gjson.Get(body, "max_tokens").Int())
	assert.False(t, gjson.Get(body, "context_window_tokens").Exists())
}

func TestProvider_GenerateText_NoUsage(t *testing.T) {
	p, _ := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, completion(t, "Hello", ""))
	})

	result, err := p.GenerateText(context.Background(), textRequest("k"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", result.Text)
	assert.Nil(t, result.Usage)
}

func TestProvider_GenerateText_Citations(t *testing.T) {
	p, _ := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		doc, _ := sjson.Set(completion(t, "Go 1.23 added iterators", ""), "citations", []string{"https://go.dev/doc/go1.23"})
		writeJSON(w, http.StatusOK, doc)
	})

	result, err := p.GenerateText(context.Background(), textRequest("k"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://go.dev/doc/go1.23"}, result.Citations)
}

func TestProvider_GenerateText_TransportErrorUnchanged(t *testing.T) {
	p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	})

	result, err := p.GenerateText(context.Background(), textRequest("k"))
	require.Error(t, err)
	assert.Nil(t, result)

	var apiErr *openai.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	var cfgErr *provider.ConfigurationError
	assert.False(t, errors.As(err, &cfgErr))
	var objErr *provider.StructuredOutputError
	assert.False(t, errors.As(err, &objErr))
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestProvider_MissingAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		t.Run(fmt.Sprintf("key=%q", key), func(t *testing.T) {
			p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
				writeJSON(w, http.StatusOK, completion(t, "unreachable", ""))
			})
			ctx := context.Background()

			_, err := p.GenerateText(ctx, textRequest(key))
			var cfgErr *provider.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "APIKey", cfgErr.Field)
			assert.ErrorIs(t, err, provider.ErrMissingAPIKey)

			_, err = p.StreamText(ctx, textRequest(key))
			require.ErrorAs(t, err, &cfgErr)
			assert.ErrorIs(t, err, provider.ErrMissingAPIKey)

			_, err = p.GenerateObject(ctx, objectRequest(key))
			require.ErrorAs(t, err, &cfgErr)
			assert.ErrorIs(t, err, provider.ErrMissingAPIKey)
			var objErr *provider.StructuredOutputError
			assert.False(t, errors.As(err, &objErr))

			assert.Zero(t, rec.calls.Load())
		})
	}
}

func TestProvider_GenerateText_EmptyKeyScenario(t *testing.T) {
	p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, completion(t, "unreachable", ""))
	})

	_, err := p.GenerateText(context.Background(), provider.TextRequest{ModelID: "m"})
	var cfgErr *provider.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, rec.calls.Load())
}

func TestProvider_GenerateText_NotCached(t *testing.T) {
	var rec *recorder
	p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, completion(t, fmt.Sprintf("answer %d", rec.calls.Load()), ""))
	})

	first, err := p.GenerateText(context.Background(), textRequest("k"))
	require.NoError(t, err)
	second, err := p.GenerateText(context.Background(), textRequest("k"))
	require.NoError(t, err)

	assert.EqualValues(t, 2, rec.calls.Load())
	assert.Equal(t, "answer 1", first.Text)
	assert.Equal(t, "answer 2", second.Text)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestProvider_InvalidRequest(t *testing.T) {
	p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, completion(t, "unreachable", ""))
	})

	req := textRequest("k")
	req.ModelID = ""
	req.Messages = append(req.Messages, messages.Message{Role: "robot"})

	_, err := p.GenerateText(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrMissingModel)
	assert.Contains(t, err.Error(), "Messages[1]")
	assert.Zero(t, rec.calls.Load())
}

func TestProvider_BaseURLFromCredentials(t *testing.T) {
	var hit atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
		assert.Equal(t, "/api/chat/completions", r.URL.Path)
		writeJSON(w, http.StatusOK, completion(t, "proxied", ""))
	}))
	t.Cleanup(server.Close)

	p := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	req := textRequest("k")
	req.BaseURL = server.URL + "/api"

	result, err := p.GenerateText(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "proxied", result.Text)
	assert.True(t, hit.Load())
}

func TestProvider_InvalidBaseURL(t *testing.T) {
	p := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	req := textRequest("k")
	req.BaseURL = "not a url"

	_, err := p.GenerateText(context.Background(), req)
	var cfgErr *provider.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BaseURL", cfgErr.Field)
}

func TestProvider_SearchOptions(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		writeJSON(w, http.StatusOK, completion(t, "ok", ""))
	}))
	t.Cleanup(server.Close)

	p := New(
		WithBaseURL(server.URL),
		WithSearchDomains("go.dev", "-reddit.com"),
		WithSearchRecency("week"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	_, err := p.GenerateText(context.Background(), textRequest("k"))
	require.NoError(t, err)

	body := rec.body(0)
	assert.Equal(t, `["go.dev","-reddit.com"]`, gjson.Get(body, "search_domain_filter").Raw)
	assert.Equal(t, "week", gjson.Get(body, "search_recency_filter").String())
}

func TestProvider_ConcurrentCallsUseOwnCredentials(t *testing.T) {
	p, rec := setupTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, completion(t, "ok", ""))
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.GenerateText(context.Background(), textRequest(fmt.Sprintf("key-%d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 8, rec.calls.Load())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := range 8 {
		assert.Contains(t, rec.auth, fmt.Sprintf("Bearer key-%d", i))
	}
}
