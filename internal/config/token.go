package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// TokenConfig is what minting a development token needs.  It is loaded on
// its own so the token command works without database settings.
type TokenConfig struct {
	JWTSecret    string `envconfig:"JWT_SECRET"`
	AccessTTLMin int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`
}

func LoadTokenConfig() (TokenConfig, error) {
	var c TokenConfig
	if err := envconfig.Process("", &c); err != nil {
		return TokenConfig{}, err
	}
	if c.AccessTTLMin <= 0 {
		return TokenConfig{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN %d", c.AccessTTLMin)
	}
	return c, nil
}
