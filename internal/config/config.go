// Package config loads the service configuration from SWISSQR_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every environment variable name.
const Prefix = "SWISSQR_"

// Config contains service configuration parameters.
type Config struct {
	LogLevel int    `env:"LOG_LEVEL" envDefault:"0"`
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	HTTP     HTTP   `envPrefix:"HTTP_"`
	Auth     Auth   `envPrefix:"AUTH_"`
}

// HTTP contains HTTP server parameters. With TLS enabled and no certificate
// files, a self-signed certificate is generated at start.
type HTTP struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	EnableTLS       bool          `env:"ENABLE_TLS" envDefault:"false"`
	CertFile        string        `env:"CERT_FILE"`
	KeyFile         string        `env:"KEY_FILE"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Auth contains where the gate reads the API token from.
type Auth struct {
	Header string `env:"HEADER" envDefault:"X-API-Key"`
	Param  string `env:"PARAM" envDefault:"api_key"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if (cfg.HTTP.CertFile == "") != (cfg.HTTP.KeyFile == "") {
		return nil, fmt.Errorf("failed to parse config: %sHTTP_CERT_FILE and %sHTTP_KEY_FILE must be set together", Prefix, Prefix)
	}

	return &cfg, nil
}
