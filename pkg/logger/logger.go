package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logrus setup. OutputFile empty means console only.
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string
	MaxSize    int // MB per log file before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Init configures the global logrus logger. Safe to call once at startup.
func Init(config Config) error {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})

	if config.OutputFile == "" {
		logrus.SetOutput(os.Stdout)
		return nil
	}

	if dir := filepath.Dir(config.OutputFile); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   config.OutputFile,
		MaxSize:    orDefault(config.MaxSize, 50),
		MaxBackups: orDefault(config.MaxBackups, 5),
		MaxAge:     orDefault(config.MaxAge, 30),
		Compress:   config.Compress,
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
