// Package observability provides the operational logger, the append-only
// error sink for upstream failures, and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the operational logger. Output is human readable when out
// is a terminal-style writer and pretty is set, JSON lines otherwise.
func NewLogger(out io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// ErrorSink records upstream feed failures, one JSON line per failed source.
// Writes are append-only and never read back by the server.
type ErrorSink struct {
	log    zerolog.Logger
	closer io.Closer
}

// NewErrorSink writes failure records to w.
func NewErrorSink(w io.Writer) *ErrorSink {
	return &ErrorSink{log: zerolog.New(w).With().Timestamp().Logger()}
}

// NewFileErrorSink appends failure records to path, rotating the file once it
// grows past maxSizeMB.
func NewFileErrorSink(path string, maxSizeMB int) *ErrorSink {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
	}
	sink := NewErrorSink(rotator)
	sink.closer = rotator
	return sink
}

// RecordFailure writes a "no <source>" entry.
func (s *ErrorSink) RecordFailure(source, stage, url string, err error) {
	event := s.log.Error().
		Str("source", source).
		Str("stage", stage).
		Str("url", url)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("no " + source)
}

// Close releases the underlying file, if any.
func (s *ErrorSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
