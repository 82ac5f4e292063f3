package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/newsdesk/internal/aggregate"
	"github.com/jonathan/newsdesk/internal/config"
	"github.com/jonathan/newsdesk/internal/fetch"
	"github.com/jonathan/newsdesk/internal/observability"
	"github.com/jonathan/newsdesk/internal/rendering"
	"github.com/jonathan/newsdesk/internal/schemas"
	"github.com/jonathan/newsdesk/internal/static"
)

// components are the collaborators built from one configuration.
type components struct {
	logger     zerolog.Logger
	sink       *observability.ErrorSink
	aggregator *aggregate.Aggregator
	renderer   *rendering.Renderer
	files      *static.Resolver
}

// buildComponents wires fetcher, aggregator, renderer and static resolver.
// Operational logs go to logOut.
func buildComponents(cfg *config.Config, logOut io.Writer) (*components, error) {
	logger, err := observability.NewLogger(logOut, cfg.LogLevel, true)
	if err != nil {
		return nil, err
	}

	news, err := newSource(cfg.NewsURL, cfg.NewsTimeout(), cfg.NewsSchema)
	if err != nil {
		return nil, err
	}
	phrases, err := newSource(cfg.PhrasesURL, cfg.PhrasesTimeout(), cfg.PhrasesSchema)
	if err != nil {
		return nil, err
	}

	files, err := static.NewResolver(cfg.Root)
	if err != nil {
		return nil, err
	}

	opts := fetch.DefaultOptions()
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}

	sink := observability.NewFileErrorSink(cfg.ErrorLog, cfg.MaxLogMB)

	helpers := rendering.DefaultHelpers()
	helpers.Locale = cfg.Locale
	helpers.BoldWords = cfg.BoldWords

	return &components{
		logger:     logger,
		sink:       sink,
		aggregator: aggregate.New(fetch.New(opts), sink, news, phrases),
		renderer:   rendering.NewRenderer(cfg.TemplatePath(), helpers),
		files:      files,
	}, nil
}

// Close flushes the error log.
func (c *components) Close() error {
	return c.sink.Close()
}

func newSource(url string, timeout time.Duration, schemaPath string) (aggregate.Source, error) {
	src := aggregate.Source{URL: url, Timeout: timeout}
	if schemaPath == "" {
		return src, nil
	}
	schema, err := schemas.Load(schemaPath)
	if err != nil {
		return src, fmt.Errorf("failed to load feed schema: %w", err)
	}
	src.Schema = schema
	return src, nil
}

// settings lists the effective configuration for verbose output.
func settings(cfg *config.Config) []observability.Setting {
	rateLimit := "disabled"
	if cfg.RateLimitEnabled() {
		rateLimit = strconv.Itoa(cfg.RendersPerMinute) + "/min"
	}
	orNone := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	}
	return []observability.Setting{
		{Name: "Port", Value: strconv.Itoa(cfg.Port)},
		{Name: "Root", Value: cfg.Root},
		{Name: "Template", Value: cfg.TemplatePath()},
		{Name: "News feed", Value: cfg.NewsURL},
		{Name: "News timeout", Value: cfg.NewsTimeout().String()},
		{Name: "News schema", Value: orNone(cfg.NewsSchema)},
		{Name: "Phrase feed", Value: cfg.PhrasesURL},
		{Name: "Phrase timeout", Value: cfg.PhrasesTimeout().String()},
		{Name: "Phrase schema", Value: orNone(cfg.PhrasesSchema)},
		{Name: "Locale", Value: cfg.Locale},
		{Name: "Bold words", Value: strings.Join(cfg.BoldWords, ", ")},
		{Name: "Error log", Value: cfg.ErrorLog},
		{Name: "Render limit", Value: rateLimit},
		{Name: "Log level", Value: cfg.LogLevel},
	}
}
