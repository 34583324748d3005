// Package logging builds the zap logger shared by the CLI and the server.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for mode ("release"/"production" or anything else for
// development). verbose enables debug output; quiet limits output to errors
// and wins over verbose.
func New(mode string, verbose, quiet bool) (*zap.Logger, error) {
	var config zap.Config

	if mode == "release" || mode == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	switch {
	case quiet:
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	case verbose:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// Sync flushes logger, ignoring the harmless errors stderr returns on some
// platforms.
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
