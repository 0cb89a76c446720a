package main

import (
	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus.Logger leveled and formatted from Config's
// log_level/log_format fields.
func NewLogger(level, format string) (*logrus.Logger, error) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid log_level: " + err.Error()}
	}

	logger := logrus.New()
	logger.SetLevel(parsedLevel)

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}
