package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the service-wide zerolog Logger. APP_ENV=dev (or
// development) switches to the human-friendly console writer; LOG_LEVEL
// tightens or loosens the floor (default info).
func NewLogger(service, env string) zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	out := zerolog.New(os.Stdout)
	if env == "dev" || env == "development" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return out.Level(level).With().Timestamp().Str("service", service).Logger()
}
