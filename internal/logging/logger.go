// Package logging builds the process logger: a JSON or text slog handler
// writing to the console, a size-rotated file, or both.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config represents the logging configuration
type Config struct {
	Level      slog.Level
	Format     string
	FilePath   string
	MaxSize    int64 // MB
	MaxBackups int
	Console    bool
	Stdout     io.Writer // console destination, os.Stdout when nil
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      slog.LevelInfo,
		Format:     FormatJSON,
		MaxSize:    100, // 100MB
		MaxBackups: 5,
		Console:    true,
	}
}

// ParseLevel converts a string log level to slog.Level. Unknown values map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a configured logger plus the file it may hold open.
type Logger struct {
	*slog.Logger
	file *RotatingFileWriter
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) (*Logger, error) {
	var writers []io.Writer
	logger := &Logger{}

	if config.Console {
		stdout := config.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		writers = append(writers, stdout)
	}

	if config.FilePath != "" {
		maxSize := config.MaxSize
		if maxSize <= 0 {
			maxSize = DefaultConfig().MaxSize
		}
		fileWriter, err := NewRotatingFileWriter(config.FilePath, maxSize*1024*1024, config.MaxBackups)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.file = fileWriter
		writers = append(writers, fileWriter)
	}

	// If no writers configured, use os.Stdout as default
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	writer := writers[0]
	if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: config.Level}
	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "", FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		_ = logger.Close()
		return nil, fmt.Errorf("unknown log format %q", config.Format)
	}

	logger.Logger = slog.New(handler)
	return logger, nil
}

// SetDefault creates a logger and installs it as the slog default. The
// caller closes the returned logger on shutdown.
func SetDefault(config Config) (*Logger, error) {
	logger, err := NewLogger(config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}
