// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions selects the logger flavour built by NewLogger.
type LoggerOptions struct {
	// Debug switches to the development encoder at debug level.
	Debug bool
	// Verbose keeps the production encoder but lowers the level to debug.
	Verbose bool
	// Quiet raises the level to warn. Ignored when Debug or Verbose is set.
	Quiet bool
}

// NewLogger builds the process logger. Stacktraces are disabled for
// non-fatal levels and timestamps are RFC3339 UTC under the "ts" key.
func NewLogger(opts LoggerOptions) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	}
	switch {
	case opts.Debug || opts.Verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case opts.Quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return logger, nil
}

// RunFields returns key/value pairs identifying a run for SugaredLogger.With
// and the *w logging calls. An empty season is left out.
func RunFields(run int, season string) []interface{} {
	if season == "" {
		return []interface{}{"run", run}
	}
	return []interface{}{"run", run, "season", season}
}
