package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. The package helpers are no-ops until
// Init has run.
var Log *zap.Logger

// Init builds a JSON logger on stdout. Development environments get
// development mode (stack traces on warn, DPanic panics).
func Init(env, level string) error {
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.MessageKey = "message"
	encoder.FunctionKey = zapcore.OmitKey
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.MillisDurationEncoder

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.Development = strings.EqualFold(env, "development")
	cfg.Sampling = nil
	cfg.EncoderConfig = encoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	zap.ReplaceGlobals(l)
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a zap level; unknown values mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// write reports the caller of the exported helper, not the helper itself.
func write(lvl zapcore.Level, msg string, fields []zap.Field) {
	if Log == nil {
		return
	}
	if ce := Log.WithOptions(zap.AddCallerSkip(2)).Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func Debug(msg string, fields ...zap.Field) { write(zapcore.DebugLevel, msg, fields) }
func Info(msg string, fields ...zap.Field)  { write(zapcore.InfoLevel, msg, fields) }
func Warn(msg string, fields ...zap.Field)  { write(zapcore.WarnLevel, msg, fields) }
func Error(msg string, fields ...zap.Field) { write(zapcore.ErrorLevel, msg, fields) }

// Fatal logs and exits the process.
func Fatal(msg string, fields ...zap.Field) { write(zapcore.FatalLevel, msg, fields) }
