package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// levelVar selects the minimum log level for the credit daemon: debug, info,
// warn or error.
const levelVar = "CREDIT_LOG_LEVEL"

// Setup builds the process-wide JSON logger for a credit daemon and installs
// it as the slog default. Every line carries the service name and, when
// provided, the deployment environment.
func Setup(service, env string) *slog.Logger {
	logger := New(os.Stdout, service, env, parseLevel(os.Getenv(levelVar)))
	slog.SetDefault(logger)
	return logger
}

// New builds the logger without touching process globals, for callers that
// own their output stream.
func New(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "timestamp"
			case slog.LevelKey:
				attr = slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	})
	logger := slog.New(handler).With(slog.String("service", strings.TrimSpace(service)))
	if env = strings.TrimSpace(env); env != "" {
		logger = logger.With(slog.String("env", env))
	}
	return logger
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
