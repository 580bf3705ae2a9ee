package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

// NewLogger writes to stderr so report output on stdout stays clean.
func NewLogger(verbose bool) *Logger {
	return NewLoggerTo(os.Stderr, verbose)
}

func NewLoggerTo(w io.Writer, verbose bool) *Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, false)
}
