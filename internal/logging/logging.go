// Package logging builds the single structured logger the CLI constructs at
// startup and passes down to the pump, never as a global.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger: a colored console encoder by default, a JSON
// encoder when quiet output is requested. Whether stderr is a terminal is
// not checked. verbose lowers
// the level to debug; quiet raises it to warn and switches the encoding.
func New(verbose, quiet bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.InfoLevel
	switch {
	case quiet:
		level = zap.WarnLevel
	case verbose:
		level = zap.DebugLevel
	}

	var encoder zapcore.Encoder
	if quiet {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	return zap.New(core, zap.AddCaller())
}
