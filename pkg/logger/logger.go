// Package logger wraps zerolog behind the printf-style interface used
// throughout the application.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the application-wide logger.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger writing console output to stderr at the given level.
// Unknown or empty levels fall back to info.
func New(level string) *Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	return &Logger{zl: zl}
}

// Raw exposes the underlying zerolog logger for libraries that take one
// directly (e.g. the whatsmeow log bridge).
func (l *Logger) Raw() zerolog.Logger {
	return l.zl
}

// With returns a logger with a constant key/value attached to every entry.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Fatal logs an error message and exits the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.zl.Fatal().Msgf(format, args...)
}
