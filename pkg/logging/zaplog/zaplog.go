// Package zaplog adapts a zap logger to the logging.Logger interface.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/ssargent/muninn/pkg/logging"
)

// Logger wraps *zap.Logger.
type Logger struct {
	L *zap.Logger
}

// New returns a Logger backed by l.
func New(l *zap.Logger) *Logger {
	return &Logger{L: l}
}

func (z *Logger) Debug(msg string, f logging.Fields) { z.L.Debug(msg, zf(f)...) }
func (z *Logger) Info(msg string, f logging.Fields)  { z.L.Info(msg, zf(f)...) }
func (z *Logger) Warn(msg string, f logging.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z *Logger) Error(msg string, f logging.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f logging.Fields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
