// Package logging builds the process logger. Log lines go to the
// configured log_path through a rotating writer; an empty path keeps
// logs on stderr, which suits tests and interactive use.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// rotation limits for the on-disk log file.
const (
	maxSizeMB  = 20
	maxBackups = 3
	maxAgeDays = 28
)

// New returns a configured logger writing to logPath.
func New(logPath string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if logPath == "" {
		log.SetOutput(os.Stderr)
		return log
	}

	log.SetOutput(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	})
	return log
}
