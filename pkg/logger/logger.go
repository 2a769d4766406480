// Package logger builds the named zap loggers shared by the monitor.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	root *zap.Logger = zap.NewNop()
)

// Options controls the root logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// Init replaces the root logger. Loggers returned by Named before Init keep
// writing to the previous root.
func Init(opts Options) error {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return err
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Format != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set installs l as the root logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
}

func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a sugared child logger of the root.
func Named(name string) *zap.SugaredLogger {
	return Root().Named(name).Sugar()
}

// Sync flushes the root logger, ignoring the errors stdout/stderr return on some platforms.
func Sync() {
	_ = Root().Sync()
}
