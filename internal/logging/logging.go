package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level maps LOG_LEVEL to a zerolog level. Unknown or empty values keep the
// production default, which only shows errors.
func Level(value string) zerolog.Level {
	switch value {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	}
	return zerolog.ErrorLevel
}

// Init configures the global logger from LOG_LEVEL. Output goes to w, or to
// stderr when w is nil; the terminal UI owns stdout.
func Init(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(Level(os.Getenv("LOG_LEVEL")))
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: w != io.Writer(os.Stderr)}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// OpenFile opens path for appending log output.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
