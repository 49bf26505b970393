// Package config holds the server's runtime configuration, populated
// from flags and TEXTORDEATH_-prefixed environment variables.
package config

import (
	"fmt"
	"time"
)

type Config struct {
	Bind            string
	Port            int
	AdminPort       int
	MaxPlayers      int
	TypingTimeLimit time.Duration
	RoundPause      time.Duration
	BotFill         bool
	WordDir         string
	Verbose         bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		return fmt.Errorf("invalid admin port (must be between 1-65535 inclusive): %d", c.AdminPort)
	}
	if c.Port == c.AdminPort {
		return fmt.Errorf("game and admin ports must differ: %d", c.Port)
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("max players must be at least 2: %d", c.MaxPlayers)
	}
	if c.TypingTimeLimit <= 0 {
		return fmt.Errorf("typing time limit must be positive: %s", c.TypingTimeLimit)
	}
	if c.RoundPause < 0 {
		return fmt.Errorf("round pause must not be negative: %s", c.RoundPause)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.AdminPort)
}
