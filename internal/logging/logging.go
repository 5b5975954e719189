// Package logging builds the service zap logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error; unknown values mean info
	Format string // json or console
	// File, when set, also writes to a size-rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New returns a production logger writing to stdout and, optionally, a
// rotated file. The returned func closes the file sink.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	config := zap.NewProductionConfig()
	config.Level = atom
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stdout"}
	if opts.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	stdout, err := config.Build()
	if err != nil {
		return nil, nil, err
	}
	if opts.File == "" {
		return stdout, func() error { return nil }, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 100),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   opts.Compress,
	}
	// the file sink is always JSON
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotator),
		atom,
	)

	logger := stdout.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))
	return logger, rotator.Close, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Must is New for process startup: it exits when the logger cannot be built.
func Must(opts Options) (*zap.Logger, func() error) {
	logger, closeFn, err := New(opts)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger, closeFn
}
