// Package logging provides structured logging for the CLI.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures NewLogger.
type Options struct {
	Verbose bool // info level; warnings only otherwise
	Debug   bool // debug level, overrides Verbose
	JSON    bool // newline-delimited JSON instead of console output
	RunID   string
}

// Logger wraps zerolog with the CLI's output conventions.
type Logger struct {
	zlog   zerolog.Logger
	json   bool
	runID  string
	output io.Writer
}

// NewLogger creates a logger writing to stderr. Stdout is reserved for
// command results so they can be piped.
func NewLogger(opts Options) *Logger {
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	l := &Logger{json: opts.JSON, runID: opts.RunID}
	l.SetOutput(os.Stderr)
	l.zlog = l.zlog.Level(levelFor(opts))
	return l
}

// NewDefaultCLILogger creates a console logger at warn level.
func NewDefaultCLILogger() *Logger {
	return NewLogger(Options{})
}

// NewRunID returns a fresh identifier attached to every line of one invocation.
func NewRunID() string {
	return uuid.NewString()
}

func levelFor(opts Options) zerolog.Level {
	switch {
	case opts.Debug:
		return zerolog.DebugLevel
	case opts.Verbose:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

// RunID returns the identifier stamped on every line.
func (l *Logger) RunID() string { return l.runID }

// Zerolog returns the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zlog }

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetOutput changes the output writer for the logger, keeping its level.
// Progress bars use this to route log lines above the bars.
func (l *Logger) SetOutput(w io.Writer) {
	level := l.zlog.GetLevel()
	l.output = w

	var out io.Writer = w
	if !l.json {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
		}
	}
	l.zlog = zerolog.New(out).
		With().
		Timestamp().
		Str("run_id", l.runID).
		Logger().
		Level(level)
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Debugf logs a debug message with printf-style formatting.
// This is only shown when debug mode is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	// Configure global logger
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
