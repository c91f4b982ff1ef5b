// Package perplexity adapts the Perplexity chat completions API to the
// provider contract.
//
// Perplexity speaks the OpenAI wire protocol, so requests go through the
// openai-go SDK pointed at https://api.perplexity.ai. A client is built per
// call from the request's credentials; the Provider value itself is
// immutable and safe for concurrent use.
//
// Structured output uses the json_schema response format. Model answers are
// stripped of <think> blocks and markdown fences, repaired when they are
// almost valid JSON, and validated against the schema before they are
// returned. Answers that fail validation are re-prompted with the error.
//
// Example:
//
//	p := perplexity.New(perplexity.WithSearchRecency("week"))
//	result, err := p.GenerateText(ctx, provider.TextRequest{
//	    Credentials: provider.Credentials{APIKey: os.Getenv("PERPLEXITY_API_KEY")},
//	    ModelID:     perplexity.Sonar,
//	    Messages:    []messages.Message{messages.User("What changed in Go 1.23?")},
//	})
package perplexity
