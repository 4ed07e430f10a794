// Package logger holds the process-wide zap logger used by the envgen CLI.
//
// Libraries under pkg/ never touch this package; they accept a *zap.Logger
// and default to a no-op one. The CLI calls Initialize once flags and config
// are resolved and hands Logger.Desugar() down.
package logger

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger. It is a no-op until Initialize runs.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected JSON output.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Options controls Initialize.
type Options struct {
	// JSON selects zap's production JSON encoder.
	JSON bool
	// Level is a zap level name (debug, info, warn, error). Empty means info.
	Level string
	// Verbose forces debug level.
	Verbose bool
	// Quiet forces error level. Verbose wins when both are set.
	Quiet bool
}

// ParseLevel maps a level name onto a zapcore.Level.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel, errors.WithHint(
			errors.Wrapf(err, "invalid log level %q", name),
			"use one of debug, info, warn, error",
		)
	}
	return lvl, nil
}

// Initialize replaces Logger. Log lines go to stderr so generated code
// written to stdout stays clean.
func Initialize(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	switch {
	case opts.Verbose:
		lvl = zapcore.DebugLevel
	case opts.Quiet:
		lvl = zapcore.ErrorLevel
	}

	JSONOutput = opts.JSON

	var zapLogger *zap.Logger
	if opts.JSON {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		zapLogger, err = config.Build()
		if err != nil {
			return errors.Wrap(err, "building json logger")
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encCfg),
				zapcore.AddSync(os.Stderr),
				lvl,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Sync flushes buffered log entries. Errors from syncing a terminal are
// ignored.
func Sync() {
	_ = Logger.Sync()
}
