// Package logsvc provides the application logger.
package logsvc

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campoalegre/unibus/core"
)

// NewZap builds a console logger in debug and a JSON one otherwise.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	var zc zap.Config
	if conf.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zl, err := zc.Build(zap.Fields(zap.String("app", conf.AppName), zap.String("build", conf.Build)))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return zl, nil
}

// New returns the application logger.
func New(conf *core.Config) (*RollbarLogger, error) {
	zl, err := NewZap(conf)
	if err != nil {
		return nil, err
	}
	return NewRollbarLogger(zl, conf), nil
}
