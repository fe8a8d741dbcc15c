package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"chantierpro/internal/config"
)

// New builds the process logger. With a configured file it writes through a
// rotating writer, otherwise to stderr.
func New(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := "info"
	var out io.Writer = os.Stderr
	if cfg != nil {
		if cfg.Logging.Level != "" {
			level = cfg.Logging.Level
		}
		if cfg.Logging.File != "" {
			out = &lumberjack.Logger{
				Filename:   cfg.Logging.File,
				MaxSize:    orDefault(cfg.Logging.MaxSizeMB, 10),
				MaxBackups: orDefault(cfg.Logging.MaxBackups, 3),
				MaxAge:     orDefault(cfg.Logging.MaxAgeDays, 28),
				Compress:   true,
			}
		}
	}
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
