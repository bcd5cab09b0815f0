// Package logsvc provides the logging backends.
package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kindredkids/compass/core"
)

// ZapLogger adapts a zap sugared logger to core.Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var logConfig zap.Config
	if conf.Debug {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		logConfig = zap.NewProductionConfig()
	}

	log, err := logConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: log.Sugar()}, nil
}

// Unwrap exposes the underlying zap logger for middleware that wants
// structured fields.
func (l *ZapLogger) Unwrap() *zap.Logger { return l.sugar.Desugar() }

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, kvs(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, kvs(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, kvs(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, kvs(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.sugar.Fatalw(msg, kvs(args)...) }

// kvs coerces loose args into zap's key-value form. Odd trailing values are
// logged under a generic key instead of being dropped.
func kvs(args []interface{}) []interface{} {
	if len(args)%2 == 0 {
		return args
	}
	return append(args[:len(args)-1:len(args)-1], "detail", args[len(args)-1])
}
