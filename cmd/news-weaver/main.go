// Package main is the entry point for the news-weaver control plane binary.
package main

import (
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DanielBerns/news-weaver/cmd/news-weaver/app"
	"github.com/DanielBerns/news-weaver/internal/config"
)

// getLogLevel parses the NEWS_WEAVER_LOG_LEVEL environment variable.
// Defaults to info if unset or invalid.
func getLogLevel() zapcore.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	switch strings.ToLower(v.GetString("LOG_LEVEL")) {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(getLogLevel())
	// Keep stdout clean for commands that output data (e.g. version --format json).
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	if err := app.NewRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
