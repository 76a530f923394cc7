package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger *zerolog.Logger
	loggerOnce    sync.Once
)

// GetDefaultLogger returns the process-wide root logger. The first call
// initializes it: console writer when stderr is a terminal, JSON otherwise,
// level taken from the LOG_LEVEL environment variable (default info).
func GetDefaultLogger() *zerolog.Logger {
	loggerOnce.Do(func() {
		var out zerolog.Logger
		if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}
			out = zerolog.New(writer).With().Timestamp().Logger()
		} else {
			out = zerolog.New(os.Stderr).With().Timestamp().Logger()
		}
		out = out.Level(levelFromEnv())
		defaultLogger = &out
	})
	return defaultLogger
}

// GetSubsystemLogger returns a child logger tagged with a component name.
func GetSubsystemLogger(component string) *zerolog.Logger {
	l := GetDefaultLogger().With().Str("component", component).Logger()
	return &l
}

// SetLevel changes the root logger level at runtime.
func SetLevel(level string) {
	l := GetDefaultLogger().Level(parseLevel(level))
	defaultLogger = &l
}

func levelFromEnv() zerolog.Level {
	return parseLevel(os.Getenv("LOG_LEVEL"))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
