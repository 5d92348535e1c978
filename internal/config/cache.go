package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AvailabilityCacheConfig controls the Redis cache of booked dates.  When
// Enabled is false or no Redis client is configured, dates are read from the
// database on every request.  Prefix namespaces the keys; the sacrament kind
// is appended to it.
type AvailabilityCacheConfig struct {
	Enabled bool          `envconfig:"AVAIL_CACHE_ENABLED" default:"true"`
	TTL     time.Duration `envconfig:"AVAIL_CACHE_TTL" default:"5m"`
	Prefix  string        `envconfig:"AVAIL_CACHE_PREFIX" default:"avail"`
}

// LoadAvailabilityCacheConfig reads AVAIL_CACHE_* variables.  Malformed
// values fall back to the defaults.
func LoadAvailabilityCacheConfig() AvailabilityCacheConfig {
	var c AvailabilityCacheConfig
	if err := envconfig.Process("", &c); err != nil {
		c = AvailabilityCacheConfig{Enabled: true, TTL: 5 * time.Minute, Prefix: "avail"}
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Prefix == "" {
		c.Prefix = "avail"
	}
	return c
}
