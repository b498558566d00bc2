// Package logger holds the process-wide structured logger. All components log
// through the sugared logger so server-side context (user ids, IPs, skip
// reasons) ends up in one place while clients only ever see generic errors.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log *zap.SugaredLogger

func init() {
	// Keep a usable logger even before Init runs (tests, early failures).
	Log = zap.NewNop().Sugar()
}

// Init configures the global logger. When LOG_PATH is set, output goes to a
// size-rotated file; otherwise to stdout. LOG_LEVEL selects the minimum level
// (debug|info|warn|error, default info). In the "dev" environment a console
// encoder is used instead of JSON.
func Init(env string) {
	var sink zapcore.WriteSyncer
	if path := os.Getenv("LOG_PATH"); path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if env == "dev" {
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		enc = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level(os.Getenv("LOG_LEVEL"))))
	Log = zap.New(core, zap.AddCaller()).Sugar()
}

// Sync flushes buffered entries. Called on shutdown.
func Sync() {
	_ = Log.Sync()
}

func level(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
