// Package logger configures the process-wide zerolog logger (grounded
// on the teacher's use of github.com/rs/zerolog/log throughout
// internal/application/executor: structured, leveled, global).
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup parses level, configures the global zerolog logger to write
// JSON to stdout with a timestamp field, and installs it as the
// package-level default so collaborators can simply `log.Info()...`.
func Setup(level string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	log.Logger = logger
	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
