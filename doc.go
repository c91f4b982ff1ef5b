/*
Package pplx is a small facade over the Perplexity provider adapter.

The adapter itself lives in provider/perplexity and implements the
provider-neutral contract in package provider. This package wires a shared
default adapter and offers request builders so simple programs need only a
few lines:

	req, err := pplx.Request(perplexity.Sonar, "What changed in Go 1.23?",
		pplx.FromEnv(),
		pplx.WithSystem("Answer in one paragraph."),
	)
	if err != nil {
		return err
	}
	result, err := pplx.GenerateText(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(result.Text, result.Usage)

# Operations

  - GenerateText: one completion, normalized text and usage
  - StreamText: a provider.TextStream of text chunks ending with a usage report
  - GenerateObject: a JSON value validated against a schema
  - GenerateObjectAs: the same, decoded into a Go type whose schema is reflected

# Errors

Missing credentials and malformed requests fail with
*provider.ConfigurationError before anything is sent. Transport failures of
the text operations are returned as the SDK produced them. Object generation
failures are *provider.StructuredOutputError values; use provider.Unsupported
to tell a model that cannot do structured output from a bad answer.

The default adapter holds no client and no credentials, so sharing it between
goroutines shares nothing but configuration.
*/
package pplx
