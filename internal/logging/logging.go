package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level    string // debug, info, warn, error
	FilePath string // empty means stderr only
}

// New builds a SugaredLogger writing console-encoded lines to stderr and,
// when FilePath is set, to a size-rotated file as well.
func New(cfg Config) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	enc := zapcore.NewConsoleEncoder(encCfg)
	level := parseLevel(cfg.Level)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), level),
	}
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lj), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
