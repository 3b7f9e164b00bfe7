// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/dkeye/confdemo/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup points the global logger at stderr and, when cfg.File is set, at a
// rotating log file. The returned closer flushes the file. An empty or
// unknown level means info.
func Setup(cfg config.LogConfig) io.Closer {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.File == "" {
		log.Logger = log.Output(console)
		warnLevel(cfg.Level, err)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(console, file))
	warnLevel(cfg.Level, err)
	return file
}

func warnLevel(level string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("module", "logging").Str("level", level).Msg("unknown log level, using info")
	}
}
