package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// LevelEnvVar selects the minimum log level at startup. Unset or unknown
// values fall back to info.
const LevelEnvVar = "GUARDVAULT_LOG_LEVEL"

// Setup installs a JSON slog logger as the process default and returns it.
// Every line carries the service name, plus the environment when one is
// configured. The standard library logger is redirected into the same stream
// so third-party packages do not bypass the structured output.
func Setup(service, env string) *slog.Logger {
	return setup(os.Stdout, service, env, parseLevel(os.Getenv(LevelEnvVar)))
}

func setup(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameCoreAttrs,
	})

	logger := slog.New(handler).With("service", strings.TrimSpace(service))
	if env = strings.TrimSpace(env); env != "" {
		logger = logger.With("env", env)
	}
	slog.SetDefault(logger)

	bridge := slog.NewLogLogger(logger.Handler(), slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)

	return logger
}

// renameCoreAttrs maps slog's built-in keys onto the field names the rest of
// the fleet's log tooling expects.
func renameCoreAttrs(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "timestamp"
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "message"
	}
	return attr
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
