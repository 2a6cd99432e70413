package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig captures options for configuring the global logger.
type LogConfig struct {
	Level  string    // optional log level ("debug", "info", etc.)
	Output io.Writer // optional writer (defaults to os.Stderr)
	Pretty bool      // human-readable console output instead of JSON
}

var (
	logOnce sync.Once
	baseLog zerolog.Logger
)

// ConfigureLogging initialises the global logger exactly once.
func ConfigureLogging(cfg LogConfig) {
	logOnce.Do(func() {
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		} else if env := os.Getenv("LOG_LEVEL"); env != "" {
			if parsed, err := zerolog.ParseLevel(env); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stderr
		}
		if cfg.Pretty {
			writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
		}

		baseLog = zerolog.New(writer).With().
			Timestamp().
			Str("service", "neuron-export").
			Logger()
	})
}

// Logger returns a child of the base logger annotated with component.
func Logger(component string) zerolog.Logger {
	ConfigureLogging(LogConfig{})
	return baseLog.With().Str("component", component).Logger()
}
