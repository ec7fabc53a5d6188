package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger with the configuration this tool needs.
type Logger struct {
	*logrus.Logger
}

// New creates a logger writing to stdout at info level.
func New() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{Logger: l}
}

// NewWriter creates a logger that writes to the provided writer.
func NewWriter(w io.Writer) *Logger {
	l := New()
	l.SetOutput(w)
	return l
}

// SetVerbose switches debug-level logging on or off.
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
}
