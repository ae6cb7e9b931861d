package config

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger builds the process-wide zap logger. APP_ENV=production selects
// the JSON production config, anything else the console development config.
func NewLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
