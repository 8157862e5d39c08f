package config

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Environment variable names
const (
	EnvBybitAPIKey    = "BYBIT_API_KEY"
	EnvBybitAPISecret = "BYBIT_API_SECRET"
	EnvLogLevel       = "LOG_LEVEL"
)

// Env holds the secrets and overrides read from the environment.
type Env struct {
	BybitAPIKey    string
	BybitAPISecret string
	LogLevel       string
}

// LoadEnvFile loads environment variables from a file. A missing file is not
// an error; the system environment is used as is.
func LoadEnvFile(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = EnvFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("environment file not found, using system environment", zap.String("path", path))
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		logger.Warn("could not load environment file", zap.String("path", path), zap.Error(err))
		return err
	}

	logger.Debug("environment loaded", zap.String("path", path))
	return nil
}

// ReadEnv reads the known variables from the process environment.
func ReadEnv() Env {
	return Env{
		BybitAPIKey:    os.Getenv(EnvBybitAPIKey),
		BybitAPISecret: os.Getenv(EnvBybitAPISecret),
		LogLevel:       os.Getenv(EnvLogLevel),
	}
}

// ApplyEnv lets LOG_LEVEL override the configured level.
func (c *RunConfig) ApplyEnv(env Env) {
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
}
