// Package logger provides the process-wide structured logger used by every
// other package, following the same Debugf/Infof/Warnf/Errorw shape chainlink's
// own core/logger package exposes.
package logger

import (
	"go.uber.org/zap"
)

var log *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	log = l.Sugar()
}

// SetLevel reconfigures the global logger at the requested level ("debug",
// "info", "warn", "error"). Unknown levels fall back to "info".
func SetLevel(level string) {
	var zl zap.AtomicLevel
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		zl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zl
	l, err := cfg.Build()
	if err != nil {
		return
	}
	log = l.Sugar()
}

func Debugf(template string, args ...interface{}) { log.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { log.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { log.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { log.Errorf(template, args...) }

func Debugw(msg string, kv ...interface{}) { log.Debugw(msg, kv...) }
func Infow(msg string, kv ...interface{})  { log.Infow(msg, kv...) }
func Warnw(msg string, kv ...interface{})  { log.Warnw(msg, kv...) }
func Errorw(msg string, kv ...interface{}) { log.Errorw(msg, kv...) }

func Info(args ...interface{})  { log.Info(args...) }
func Warn(args ...interface{})  { log.Warn(args...) }
func Error(args ...interface{}) { log.Error(args...) }

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	_ = log.Sync()
}
