// Package provider defines the provider-neutral contract for generating text
// and structured objects with large language models. Adapters for specific
// vendors (see provider/perplexity) implement the Provider interface and
// translate from and to the vendor's native shapes, so callers depend only on
// the types in this package.
//
// Design decisions:
//   - Three operations: GenerateText, StreamText and GenerateObject
//   - Absence is preserved: optional request fields are pointers and are
//     never sent as zero values
//   - One usage shape: Usage{InputTokens, OutputTokens}; a nil *Usage means
//     the provider did not report usage
//   - Normalized streams: StreamText returns a TextStream instead of the
//     vendor's native stream type
//   - Tagged failures: object generation always fails with a
//     StructuredOutputError whose Reason tells callers what went wrong
//   - No hidden state: adapters build a fresh client on every call
//
// Error taxonomy:
//   - ConfigurationError: missing API key or invalid parameters, raised before
//     any network activity
//   - transport errors: returned unchanged by GenerateText and StreamText
//   - StructuredOutputError: wraps every GenerateObject failure and carries a
//     disclaimer about structured output support
//
// Example usage:
//
//	p := perplexity.New()
//	result, err := p.GenerateText(ctx, provider.TextRequest{
//	    Credentials: provider.Credentials{APIKey: os.Getenv("PERPLEXITY_API_KEY")},
//	    ModelID:     "sonar",
//	    Messages:    []messages.Message{messages.User("hi")},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Text, result.Usage)
//
// Streaming:
//
//	stream, err := p.StreamText(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for text, err := range stream.Text() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(text)
//	}
//	fmt.Println(stream.Usage())
package provider
