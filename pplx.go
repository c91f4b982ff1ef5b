package pplx

import (
	"context"
	"sync"

	"github.com/casualjim/pplx/provider"
	"github.com/casualjim/pplx/provider/perplexity"
)

var defaultProvider = sync.OnceValue(func() provider.Provider {
	return perplexity.New()
})

// Default returns the shared Perplexity adapter. It logs to slog.Default().
func Default() provider.Provider {
	return defaultProvider()
}

// GenerateText runs provider.Provider.GenerateText on the default adapter.
func GenerateText(ctx context.Context, req provider.TextRequest) (*provider.TextResult, error) {
	return Default().GenerateText(ctx, req)
}

// StreamText runs provider.Provider.StreamText on the default adapter.
func StreamText(ctx context.Context, req provider.TextRequest) (*provider.TextStream, error) {
	return Default().StreamText(ctx, req)
}

// GenerateObject runs provider.Provider.GenerateObject on the default adapter.
func GenerateObject(ctx context.Context, req provider.ObjectRequest) (*provider.ObjectResult, error) {
	return Default().GenerateObject(ctx, req)
}

// GenerateObjectAs generates an object and decodes it into T. The schema is
// reflected from T unless req carries one.
func GenerateObjectAs[T any](ctx context.Context, req provider.ObjectRequest) (T, *provider.ObjectResult, error) {
	return provider.GenerateObjectAs[T](ctx, Default(), req)
}
