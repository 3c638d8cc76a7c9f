// Package logruslog adapts a logrus entry to the logging.Logger interface.
package logruslog

import (
	"github.com/sirupsen/logrus"

	"github.com/ssargent/muninn/pkg/logging"
)

// Logger wraps *logrus.Entry.
type Logger struct {
	E *logrus.Entry
}

// New returns a Logger backed by e.
func New(e *logrus.Entry) *Logger {
	return &Logger{E: e}
}

func (l *Logger) Debug(msg string, f logging.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l *Logger) Info(msg string, f logging.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l *Logger) Warn(msg string, f logging.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l *Logger) Error(msg string, f logging.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
