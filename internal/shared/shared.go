// package shared defines shared helpers
package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] writing to a size-rotated file at path.
func NewFileLogger(path string) (*log.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   false,
	}
	return NewLogger(w), nil
}

// LoggerFromConfig builds the application logger from [LogConfig].
//
// When a file is configured, output goes to both stderr and the rotated file.
func LoggerFromConfig(conf LogConfig) (*log.Logger, error) {
	var w io.Writer = os.Stderr
	if conf.File != "" {
		if err := os.MkdirAll(filepath.Dir(conf.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{Filename: conf.File, MaxSize: 10, MaxBackups: 3})
	}

	logger := NewLogger(w)
	if conf.Level != "" {
		level, err := log.ParseLevel(strings.ToLower(conf.Level))
		if err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfig, conf.Level)
		}
		SetLogLevel(logger, level)
	}
	return logger, nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// IsValidID reports whether s parses as a [uuid.UUID].
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
