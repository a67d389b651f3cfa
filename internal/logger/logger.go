// internal/logger/logger.go
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus logger configured for the application.
// Packages keep a single instance in a package-level var.
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}
