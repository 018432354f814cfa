package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New creates a new logger with the specified
// configuration
func New(config *Config) Logger {
	props := LogrusLoggerProperties{
		Level: logrus.DebugLevel,
	}

	switch config.Level {
	case "debug":
		props.Level = logrus.DebugLevel
	case "info":
		props.Level = logrus.InfoLevel
	case "warn":
		props.Level = logrus.WarnLevel
	default:
		props.Level = logrus.DebugLevel
	}

	return NewLogrus(props)
}

// Discard returns a Logger that drops every entry. It is the default a
// component falls back to when constructed without a logger, so callers
// that do not care about logging never pay for it and the component
// never has to nil-check.
func Discard() Logger {
	return NewLogrus(LogrusLoggerProperties{
		Level:  logrus.ErrorLevel,
		Output: io.Discard,
	})
}
