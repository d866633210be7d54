package logging

import (
	"os"

	"go.uber.org/zap"
)

// New builds the service logger: structured JSON in production, the plain
// example encoder when APP_ENV=dev
func New() *zap.Logger {
	if os.Getenv("APP_ENV") == "dev" {
		return zap.NewExample()
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
