package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the narrow logging surface handed to the rest of the tool.
// keysAndValues are alternating key/value pairs, zap-sugared style.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// zapLogger wraps a *zap.SugaredLogger and implements Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Ensure zapLogger satisfies Logger.
var _ Logger = (*zapLogger)(nil)

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

var (
	initOnce    sync.Once
	initErr     error
	globalSugar *zap.SugaredLogger
)

// Init builds the Zap logger once and returns the Logger interface.
// Later calls reuse the first logger, so constructors can call Init
// without caring whether the CLI already did.
func Init() (Logger, error) {
	initOnce.Do(func() {
		// ISO8601 timestamps + capital, colored levels
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

		zapLog, err := cfg.Build(
			zap.AddCaller(),      // include file:line
			zap.AddCallerSkip(1), // skip the wrapper frame
		)
		if err != nil {
			initErr = err
			return
		}
		globalSugar = zapLog.Sugar()
	})
	if initErr != nil {
		return nil, initErr
	}
	return &zapLogger{sugar: globalSugar}, nil
}

// Cleanup flushes any buffered log entries. Call at program exit.
func Cleanup() {
	if globalSugar != nil {
		_ = globalSugar.Sync()
	}
}

// Global returns the process-wide Logger, for components that are handed no
// logger explicitly. It builds the logger on first use; if the build fails it
// returns a no-op logger.
func Global() Logger {
	log, err := Init()
	if err != nil {
		return &zapLogger{sugar: zap.NewNop().Sugar()}
	}
	return log
}
