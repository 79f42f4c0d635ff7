// Package logging owns the process-wide logrus logger.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"calibration-tracker/config"
)

var (
	logger = logrus.New()
	mu     sync.RWMutex
)

// Init configures the shared logger from the log section of the config.
func Init(cfg config.LogConfig) {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		l.Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the shared logger.
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
