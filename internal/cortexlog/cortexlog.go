// Package cortexlog builds the single structured logger used by the engine
// for its internal diagnostic trail (consolidation fallbacks, unparseable
// plans, failed promotions and dream adjustments). CLI-facing, human-read messages stay on
// plain fmt/os.Stderr and do not go through this logger.
package cortexlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile logger, or a debug-level console logger
// when debug is true.
func New(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		// Logger construction only fails on invalid config; fall back to
		// a no-op logger rather than aborting the process over this.
		return zap.NewNop()
	}
	return logger
}
