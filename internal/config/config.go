// Package config holds the server's runtime configuration, populated
// from flags and RPSLS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
)

type Config struct {
	Bind          string
	Port          int
	DiscoveryPort int
	DatabaseURL   string
	InviteCap     int
	Verbose       bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DiscoveryPort < 1 || c.DiscoveryPort > 65535 {
		return fmt.Errorf("invalid discovery port (must be between 1-65535 inclusive): %d", c.DiscoveryPort)
	}
	if c.Port == c.DiscoveryPort {
		return errors.New("port and discovery-port must differ")
	}
	if c.InviteCap < 1 {
		return fmt.Errorf("invite-cap must be positive: %d", c.InviteCap)
	}
	return nil
}
