// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"ajax-cloud-bridge/internal/config"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "ajax-cloud-bridge"

// New returns a logger writing to cfg.Output in cfg.Format, tagged with the
// service name and a timestamp.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}
	return newWithWriter(output(cfg.Output), cfg.Format, level), nil
}

func output(name string) io.Writer {
	if name == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func newWithWriter(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
