package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"simtrade/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Stdout carries the configured format;
// when OutputFile is set, a JSON copy is written there with rotation.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	console := cfg.Format == "console" || cfg.Environment == "dev"

	cores := []zapcore.Core{stdoutCore(lvl, console)}
	if cfg.OutputFile != "" {
		fc, err := fileCore(cfg.OutputFile, lvl)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fc)
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func stdoutCore(lvl zapcore.Level, console bool) zapcore.Core {
	sink := zapcore.Lock(os.Stdout)
	if console {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, lvl)
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, lvl)
}

// fileCore writes JSON with rotation so week-long replay sessions do not
// fill the disk.
func fileCore(path string, lvl zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB before rotation
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, lvl), nil
}
