// Package logger is the process-wide logger for listingsync.
//
// It wraps a zap sugared logger behind printf-style helpers. The level
// comes from configuration; --verbose lowers it to debug.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu        sync.RWMutex
	verbose   bool
	baseLevel           = zapcore.InfoLevel
	level               = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	format              = "console"
	output    io.Writer = os.Stderr
	sugar     *zap.SugaredLogger
)

func init() {
	rebuild()
}

// Configure sets the level (debug, info, warn, error) and format (console, json).
func Configure(levelName, formatName string) error {
	lvl, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch formatName {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", formatName)
	}

	mu.Lock()
	defer mu.Unlock()
	baseLevel = lvl
	if formatName != "" {
		format = formatName
	}
	if !verbose {
		level.SetLevel(lvl)
	}
	rebuild()
	return nil
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(baseLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer logs go to. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// rebuild must be called with mu held.
func rebuild() {
	var enc zapcore.Encoder
	if format == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	sugar = zap.New(zapcore.NewCore(enc, zapcore.AddSync(output), level)).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs at debug level.
func Debug(format string, args ...any) {
	current().Debugf(format, args...)
}

// Section logs a section header at debug level.
func Section(name string) {
	current().Debugf("=== %s ===", name)
}

// Info logs at info level.
func Info(format string, args ...any) {
	current().Infof(format, args...)
}

// Warn logs at warn level.
func Warn(format string, args ...any) {
	current().Warnf(format, args...)
}

// Error logs at error level.
func Error(format string, args ...any) {
	current().Errorf(format, args...)
}

// With returns a logger carrying structured fields, e.g. With("account", id).
func With(keysAndValues ...any) *zap.SugaredLogger {
	return current().With(keysAndValues...)
}
