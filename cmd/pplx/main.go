// Command pplx talks to Perplexity from the terminal.
//
// Usage:
//
//	pplx [flags] text|stream|object <prompt>
//
// The API key is read from PERPLEXITY_API_KEY, optionally via a .env file in
// the working directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/pplx"
	"github.com/casualjim/pplx/provider"
	"github.com/casualjim/pplx/provider/perplexity"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

const envModel = "PPLX_MODEL"

var log zerolog.Logger

func init() {
	setupLogging(os.Stderr, slog.LevelWarn)
}

func setupLogging(w io.Writer, level slog.Level) {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

// answer is the schema used by "object" when no -schema file is given.
type answer struct {
	Answer  string   `json:"answer" jsonschema:"description=The answer to the question"`
	Sources []string `json:"sources,omitempty" jsonschema:"description=URLs backing the answer"`
}

type config struct {
	command     string
	prompt      string
	model       string
	system      string
	schemaFile  string
	temperature *float64
	maxTokens   int64
	retries     int
	domains     []string
	recency     string
	jsonOut     bool
	render      bool
	debug       bool
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("pplx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: pplx [flags] text|stream|object <prompt>")
		fs.PrintDefaults()
	}

	defaultModel := perplexity.Sonar
	if m := strings.TrimSpace(os.Getenv(envModel)); m != "" {
		defaultModel = m
	}
	fs.StringVar(&cfg.model, "model", defaultModel, "model id (env "+envModel+")")
	fs.StringVar(&cfg.system, "system", "", "system prompt")
	fs.Func("temperature", "sampling temperature (not sent when unset)", func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		cfg.temperature = &v
		return nil
	})
	fs.Int64Var(&cfg.maxTokens, "max-tokens", 0, "maximum output tokens (not sent when 0)")
	fs.StringVar(&cfg.schemaFile, "schema", "", "JSON schema file for the object command")
	fs.IntVar(&cfg.retries, "retries", -1, "validation retries for the object command (default 1)")
	fs.Func("domains", "comma separated search domains, prefix with - to exclude", func(s string) error {
		for d := range strings.SplitSeq(s, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.domains = append(cfg.domains, d)
			}
		}
		return nil
	})
	fs.Func("recency", "limit search results to the last hour, day, week or month", func(s string) error {
		switch s {
		case "hour", "day", "week", "month":
			cfg.recency = s
			return nil
		default:
			return fmt.Errorf("invalid recency %q", s)
		}
	})
	fs.BoolVar(&cfg.jsonOut, "json", false, "print the full result as JSON")
	fs.BoolVar(&cfg.render, "render", false, "render text answers as markdown")
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return nil, errors.New("expected a command and a prompt")
	}
	cfg.command = fs.Arg(0)
	cfg.prompt = strings.Join(fs.Args()[1:], " ")
	switch cfg.command {
	case "text", "stream", "object":
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.command)
	}
	return cfg, nil
}

func (c *config) providerOptions() []opts.Option[perplexity.Provider] {
	options := []opts.Option[perplexity.Provider]{perplexity.WithLogger(slog.Default())}
	if len(c.domains) > 0 {
		options = append(options, perplexity.WithSearchDomains(c.domains...))
	}
	if c.recency != "" {
		options = append(options, perplexity.WithSearchRecency(c.recency))
	}
	return options
}

func (c *config) request() (provider.TextRequest, error) {
	options := []opts.Option[provider.TextRequest]{pplx.FromEnv(), pplx.WithSystem(c.system)}
	if c.temperature != nil {
		options = append(options, pplx.WithTemperature(*c.temperature))
	}
	if c.maxTokens > 0 {
		options = append(options, pplx.WithMaxOutputTokens(c.maxTokens))
	}
	if info, ok := perplexity.Lookup(c.model); ok {
		options = append(options, pplx.WithContextWindow(info.ContextWindow))
	}
	return pplx.Request(c.model, c.prompt, options...)
}

func (c *config) schema() (*jsonschema.Schema, error) {
	if c.schemaFile == "" {
		return provider.SchemaFor[answer](), nil
	}
	data, err := os.ReadFile(c.schemaFile)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", c.schemaFile, err)
	}
	return &s, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if cfg.debug {
		setupLogging(stderr, slog.LevelDebug)
	}

	req, err := cfg.request()
	if err != nil {
		return err
	}
	p := perplexity.New(cfg.providerOptions()...)

	switch cfg.command {
	case "text":
		result, err := p.GenerateText(ctx, req)
		if err != nil {
			return err
		}
		if err := printText(stdout, cfg, result); err != nil {
			return err
		}
		printUsage(stderr, result.Usage)
	case "stream":
		stream, err := p.StreamText(ctx, req)
		if err != nil {
			return err
		}
		defer stream.Close()
		for text, err := range stream.Text() {
			if err != nil {
				fmt.Fprintln(stdout)
				return fmt.Errorf("stream interrupted: %w", err)
			}
			fmt.Fprint(stdout, text)
		}
		fmt.Fprintln(stdout)
		printUsage(stderr, stream.Usage())
	case "object":
		schema, err := cfg.schema()
		if err != nil {
			return err
		}
		oreq := provider.ObjectRequest{TextRequest: req, Schema: schema}
		if cfg.retries >= 0 {
			oreq.MaxRetries = provider.Retries(cfg.retries)
		}
		result, err := p.GenerateObject(ctx, oreq)
		if err != nil {
			if provider.Unsupported(err) {
				fmt.Fprintln(stderr, color.YellowString("hint:"), "model", cfg.model, "may not support structured output")
			}
			return err
		}
		if err := printObject(stdout, cfg, result); err != nil {
			return err
		}
		printUsage(stderr, result.Usage)
	}
	return nil
}

func printText(w io.Writer, cfg *config, result *provider.TextResult) error {
	if cfg.jsonOut {
		return writeJSON(w, result)
	}
	text := result.Text
	if cfg.render {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return err
		}
		if text, err = r.Render(text); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	for i, c := range result.Citations {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("[%d]", i+1), c)
	}
	return nil
}

func printObject(w io.Writer, cfg *config, result *provider.ObjectResult) error {
	if cfg.jsonOut {
		return writeJSON(w, json.RawMessage(result.Raw))
	}
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(!color.NoColor)
	_, err := printer.Println(result.Object)
	return err
}

func printUsage(w io.Writer, usage *provider.Usage) {
	if usage == nil {
		fmt.Fprintln(w, color.CyanString("usage:"), "not reported")
		return
	}
	fmt.Fprintln(w, color.CyanString("usage:"), usage.String())
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("pplx failed")
		os.Exit(1)
	}
}
