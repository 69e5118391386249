// Package logging provides the zap logger construction and log
// sanitization helpers for vibeship-engine.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process-wide logger. Local environments get the
// human-readable development encoder; everything else logs structured
// JSON at info level.
func New(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
