package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configureLogger builds a logrus.Logger from the --log-level persistent
// flag, defaulting to warn so demo commands stay quiet unless asked.
func configureLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level := logrus.WarnLevel

	levelStr, _ := cmd.Flags().GetString("log-level")
	if levelStr != "" {
		parsed, err := logrus.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
