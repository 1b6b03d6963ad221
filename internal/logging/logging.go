// internal/logging/logging.go
package logging

import (
	"github.com/sirupsen/logrus"
)

// New builds the shared logrus logger. Level falls back to info when the
// configured value does not parse.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
