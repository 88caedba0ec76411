package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_GATEWAY_ADDR points at a running gateway, e.g. localhost:8080.
	// The suite is skipped when it is empty.
	GatewayAddr string `envconfig:"E2E_GATEWAY_ADDR"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
