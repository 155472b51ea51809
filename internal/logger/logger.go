package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Debug flag to control debug logging
	debugEnabled = false
	// The underlying sugared logger
	sugar *zap.SugaredLogger
)

// Init initializes the logger
func Init(debug bool) {
	debugEnabled = debug

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debugEnabled {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Development = true
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}
	sugar = base.Sugar()

	if debugEnabled {
		Debug("Debug logging enabled")
	}
}

func ensure() *zap.SugaredLogger {
	if sugar == nil {
		Init(false)
	}
	return sugar
}

// Debug logs a debug message if debug mode is enabled
func Debug(format string, v ...interface{}) {
	if debugEnabled {
		ensure().Debugf(format, v...)
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	ensure().Infof(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	ensure().Warnf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	ensure().Errorf(format, v...)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// Sync flushes any buffered log entries.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
