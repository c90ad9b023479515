package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the YAML file.
const (
	EnvHubURL          = "ICE_HUB_URL"
	EnvClientName      = "ICE_CLIENT_NAME"
	EnvCameraConfigURL = "ICE_CAMERA_CONFIG_URL"
	EnvLogLevel        = "ICE_LOG_LEVEL"
)

// loadDotEnv exports variables from an optional .env file.
// Variables already present in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}

// ApplyEnv overrides settings with non-empty ICE_* environment variables.
func ApplyEnv(cfg *Config) {
	overrides := []struct {
		name   string
		target *string
	}{
		{EnvHubURL, &cfg.HubURL},
		{EnvClientName, &cfg.ClientName},
		{EnvCameraConfigURL, &cfg.CameraConfigURL},
		{EnvLogLevel, &cfg.LogLevel},
	}

	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.name)); v != "" {
			*o.target = v
		}
	}
}
