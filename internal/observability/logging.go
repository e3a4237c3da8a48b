package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/biomelabs/biomectl/internal/paths"
)

const redactedValue = "[REDACTED]"

type contextKey struct{}

// Config holds the configuration for the CLI logger.
//
// An empty LogFile does not silence file logging: when the stderr sink is
// off as well, the log lands in the biomectl state directory so interactive
// commands (which own the terminal) still leave a trace.
type Config struct {
	Level          string
	Format         string
	LogFile        string
	StderrMode     string
	InteractiveTTY bool
	SessionID      string
	CommandPath    string
	Version        string
	Commit         string
}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from ctx, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return slog.Default()
}

// logSinks is the resolved set of writers a logger emits to.
type logSinks struct {
	writer  io.Writer
	closers []io.Closer
}

func (s *logSinks) close() error {
	var firstErr error
	for _, closer := range s.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// NewLogger creates a structured logger from the given configuration.
// The cleanup function flushes and closes any file sinks.
func NewLogger(cfg *Config) (*slog.Logger, func() error, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		return nil, nil, err
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		handler = slog.NewJSONHandler(sinks.writer, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(sinks.writer, handlerOpts)
	default:
		_ = sinks.close()
		return nil, nil, fmt.Errorf("invalid log format: %q (allowed: json, text)", cfg.Format)
	}

	logger := slog.New(handler).With(
		slog.String("session.id", cfg.SessionID),
		slog.String("command.path", cfg.CommandPath),
		slog.String("cli.version", cfg.Version),
		slog.String("cli.commit", cfg.Commit),
	)

	return logger, sinks.close, nil
}

// buildSinks resolves the stderr and file writers. When neither is
// configured, the default log file under the state directory is used.
func buildSinks(cfg *Config) (*logSinks, error) {
	stderrEnabled, err := stderrSinkEnabled(cfg.StderrMode, cfg.InteractiveTTY)
	if err != nil {
		return nil, err
	}

	path := strings.TrimSpace(cfg.LogFile)
	if path == "" && !stderrEnabled {
		if path, err = paths.DefaultLogFile(); err != nil {
			return nil, err
		}
	}

	sinks := &logSinks{}
	writers := make([]io.Writer, 0, 2)

	if stderrEnabled {
		writers = append(writers, os.Stderr)
	}

	if path != "" {
		logFile, openErr := openLogFile(path)
		if openErr != nil {
			return nil, openErr
		}

		writers = append(writers, logFile)
		sinks.closers = append(sinks.closers, logFile)
	}

	sinks.writer = io.MultiWriter(writers...)

	return sinks, nil
}

func openLogFile(path string) (*os.File, error) {
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o700); mkErr != nil {
		return nil, fmt.Errorf("create log file directory: %w", mkErr)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// stderrSinkEnabled decides the stderr mirror. In auto mode the mirror is
// suppressed for interactive commands, which paint the terminal themselves.
func stderrSinkEnabled(mode string, interactiveTTY bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return !interactiveTTY, nil
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --log-stderr value %q (allowed: auto, on, off)", mode)
	}
}

func parseLevel(level string) (slog.Leveler, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("invalid log level: %q (allowed: error, warn, info, debug)", level)
	}
}

// redactAttr scrubs credentials. Keys are matched anywhere in the attr tree,
// and bearer-shaped string values are scrubbed even under innocent keys,
// since engine responses and dial errors can embed the header wholesale.
func redactAttr(_ []string, attr slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(attr.Key)) {
		return slog.String(attr.Key, redactedValue)
	}

	if attr.Value.Kind() == slog.KindString && isBearerValue(attr.Value.String()) {
		return slog.String(attr.Key, redactedValue)
	}

	return attr
}

var sensitiveKeyParts = []string{
	"token", "api_key", "apikey", "secret", "credential", "password", "keyring",
}

func isSensitiveKey(key string) bool {
	if key == "authorization" {
		return true
	}

	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}

	return false
}

func isBearerValue(value string) bool {
	return strings.HasPrefix(value, "Bearer ") || strings.HasPrefix(value, "bearer ")
}
