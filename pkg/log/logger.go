// Package log sets up the application logger and adapts it for embedded libraries.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Sriram-PR/series-spider/pkg/config"
)

// NewLogger creates the application logger writing to stderr and, when cfg.File is set, to a rotated log file.
// The returned closer flushes and closes the file sink.
func NewLogger(cfg config.LogConfig, stderr io.Writer) (*logrus.Logger, io.Closer) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if stderr == nil {
		stderr = os.Stderr
	}
	if cfg.File == "" {
		log.SetOutput(stderr)
		return log, nopCloser{}
	}

	sink := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(stderr, sink))
	return log, sink
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
