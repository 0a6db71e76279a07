// Package logging configures the process-wide logrus logger.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup applies level and format ("text" or "json") to the standard logger.
// An unknown level falls back to info.
func Setup(level, format string) {
	Configure(logrus.StandardLogger(), level, format)
}

// Configure applies level and format to l.
func Configure(l *logrus.Logger, level, format string) {
	l.SetOutput(os.Stderr)
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.WithField("level", level).Warn("unknown log level, using info")
		return
	}
	l.SetLevel(lvl)
}
