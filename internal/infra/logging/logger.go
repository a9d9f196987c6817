// internal/infra/logging/logger.go
//
// zap ロガーの初期化。LOG_FILE が指定されていれば lumberjack でローテーションする。
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Mode string // "development" | "production"
	File string // optional rotated JSON log file

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds the process logger and installs it as the zap global.
func New(opts Options) (*zap.Logger, error) {
	dev := strings.EqualFold(strings.TrimSpace(opts.Mode), "development")

	var zcfg zap.Config
	if dev {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.OutputPaths = []string{"stdout"}

	var (
		logger *zap.Logger
		err    error
	)
	if f := strings.TrimSpace(opts.File); f != "" {
		rotate := &lumberjack.Logger{
			Filename:   f,
			MaxSize:    orDefault(opts.MaxSizeMB, 64),
			MaxBackups: orDefault(opts.MaxBackups, 7),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		stdoutEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		if dev {
			stdoutEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		core := zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotate), zcfg.Level),
			zapcore.NewCore(stdoutEnc, zapcore.AddSync(os.Stdout), zcfg.Level),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zcfg.Build(zap.AddCaller())
		if err != nil {
			return nil, err
		}
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
