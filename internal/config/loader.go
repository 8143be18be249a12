// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs in fire-time arithmetic.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by Load to aid debugging.
type ConfigError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load builds the Config from the environment. The optional dotenvPath points
// at a .env file; a missing file is silently ignored so production containers
// need no dotfile.
func Load(dotenvPath string) (*Config, error) {
	// All internal time math runs in UTC. Local rendering happens only at
	// the planner/dispatcher boundary using per-user zones.
	time.Local = time.UTC

	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
		return nil, &ConfigError{Stage: "dotenv", Message: "failed to load " + dotenvPath, Err: err}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Stage: "envconfig", Message: "failed to process environment", Err: err}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, &ConfigError{Stage: "validate", Message: "invalid configuration", Err: err}
	}

	return &cfg, nil
}
