// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level      string `default:"info" mapstructure:"level" yaml:"level"`      // debug, info, warn, error
	Format     string `default:"console" mapstructure:"format" yaml:"format"` // json or console
	Output     string `default:"stderr" mapstructure:"output" yaml:"output"`  // stdout, stderr, or file path
	TimeFormat string `mapstructure:"time_format" yaml:"time_format,omitempty"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for cfg. Empty fields fall back to info, console
// and stderr. The closer releases the log file when Output is a path and
// is a no-op otherwise.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level: %w", err)
		}
		level = l
	}

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("could not open log file: %w", err)
		}
		output, closer = file, file
	}

	return NewWithWriter(output, cfg.Format, cfg.TimeFormat).Level(level), closer, nil
}

// NewWithWriter builds a logger writing to w. Used by New and by tests
// that capture output.
func NewWithWriter(w io.Writer, format, timeFormat string) zerolog.Logger {
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: w != os.Stderr && w != os.Stdout}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
