// Package config loads the function host settings from the environment.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"echo-func/pkg/logger"
)

const (
	AuthLevelAnonymous = "anonymous"
	AuthLevelFunction  = "function"
)

type Config struct {
	Port int `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	// CustomHandlerPort is set by the Azure Functions host and wins over Port.
	CustomHandlerPort int `envconfig:"FUNCTIONS_CUSTOMHANDLER_PORT" validate:"omitempty,min=1,max=65535"`

	AppEnv string `envconfig:"APP_ENV" default:"production" validate:"oneof=production development"`
	// LogLevel is not validated here; the logger falls back to info and warns.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	RoutePrefix  string   `envconfig:"ROUTE_PREFIX" default:"/api" validate:"omitempty,startswith=/,endsnotwith=/"`
	AuthLevel    string   `envconfig:"AUTH_LEVEL" default:"anonymous" validate:"oneof=anonymous function"`
	FunctionKeys []string `envconfig:"FUNCTION_KEYS" validate:"required_if=AuthLevel function,dive,required"`

	MetricsEnabled              bool          `envconfig:"METRICS_ENABLED" default:"true"`
	AppInsightsConnectionString string        `envconfig:"APPLICATIONINSIGHTS_CONNECTION_STRING"`
	ReadHeaderTimeout           time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"10s" validate:"gt=0"`
	ShutdownTimeout             time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// Load reads the given .env files, if any, then decodes and validates the
// environment. Variables already set in the environment are not overridden by
// the files.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ListenPort is the port the HTTP host binds to.
func (c *Config) ListenPort() int {
	if c.CustomHandlerPort != 0 {
		return c.CustomHandlerPort
	}
	return c.Port
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.ListenPort())
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// LogSettings is what the shared logger is built from.
func (c *Config) LogSettings() logger.Settings {
	return logger.Settings{
		Level:       c.LogLevel,
		Development: c.Development(),
		File:        c.LogFile,
	}
}
