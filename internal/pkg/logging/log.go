// Package logging wraps zap the way the rest of this codebase expects:
// one logger constructor plus named level fields instead of scattering
// zap.InfoLevel/zap.WarnLevel calls through the core.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ErrorLvl   = 0
	WarningLvl = 1
	InfoLvl    = 2
	ActionLvl  = 3
	DebugLvl   = 99
)

var (
	Error   = zap.Int("level", ErrorLvl)
	Warning = zap.Int("level", WarningLvl)
	Info    = zap.Int("level", InfoLvl)
	Action  = zap.Int("level", ActionLvl)
	Debug   = zap.Int("level", DebugLvl)
)

// New builds the module's standard logger: JSON-encoded, nanosecond
// epoch timestamps, caller included. devMode switches to a
// human-readable console encoder for interactive use.
func New(devMode bool) *zap.Logger {
	var encoder zapcore.Encoder
	if devMode {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(devCfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.EpochNanosTimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), zap.DebugLevel)
	return zap.New(core, zap.AddCaller())
}
