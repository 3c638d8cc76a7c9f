// Package logging defines the minimal structured logger muninn components
// accept. Callers bring their own backend; adapters for zap and logrus
// live in the zaplog and logruslog subpackages. Components that are handed
// no logger fall back to NopLogger.
package logging

// Fields carries structured context for a log entry.
type Fields map[string]any

// Logger is the logging interface accepted throughout muninn.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
