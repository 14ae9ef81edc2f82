// Package logging builds the zap logger shared by every watchf component.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// Format types for logging.
	FormatConsole = "console"
	FormatJSON    = "json"
)

// EnvFormat names the environment variable that selects the log format.
const EnvFormat = "WATCHF_LOG"

// Config holds logger configuration.
type Config struct {
	Writer  io.Writer
	Format  string
	Verbose bool
}

// New creates a logger writing to cfg.Writer, stderr by default. Build tool
// and child output go to the same stream, so the console format is kept short.
func New(cfg Config) *zap.Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	if ParseFormat(cfg.Format) == FormatJSON {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(cfg.Writer), level)
	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(os.Stderr))}
	if cfg.Verbose {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...).Named("watchf")
}

// ParseFormat normalizes a format name, falling back to console.
func ParseFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return FormatJSON
	default:
		return FormatConsole
	}
}

// FormatFromEnv reads the log format from WATCHF_LOG.
func FormatFromEnv() string {
	return ParseFormat(os.Getenv(EnvFormat))
}
