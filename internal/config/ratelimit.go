package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig drives the per-caller limit on booking submissions and
// review comments.  Capacity requests may arrive at once; after that one
// request is admitted every RefillInterval/RefillTokens.
type RateLimitConfig struct {
	Enabled        bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"10"`
	RefillTokens   int           `envconfig:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"6s"`
	Prefix         string        `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
	Debug          bool          `envconfig:"RATE_LIMIT_DEBUG" default:"false"`

	// Shorthands: BURST overrides Capacity, REFILL_EVERY means one token per interval.
	Burst       int           `envconfig:"RATE_LIMIT_BURST" default:"-1"`
	RefillEvery time.Duration `envconfig:"RATE_LIMIT_REFILL_EVERY" default:"0"`
}

func LoadRateLimitConfig() RateLimitConfig {
	var def RateLimitConfig
	if err := envconfig.Process("", &def); err != nil {
		def = RateLimitConfig{
			Enabled: true, Capacity: 10, RefillTokens: 1, RefillInterval: 6 * time.Second,
			Prefix: "rl", Burst: -1,
		}
	}
	return def.normalize()
}

func (def RateLimitConfig) normalize() RateLimitConfig {
	if def.Burst > 0 {
		def.Capacity = def.Burst
	}
	if def.RefillEvery > 0 {
		def.RefillTokens = 1
		def.RefillInterval = def.RefillEvery
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if def.Prefix == "" {
		def.Prefix = "rl"
	}
	return def
}

// Emission is the spacing between admitted requests once the burst is spent.
func (def RateLimitConfig) Emission() time.Duration {
	n := def.RefillTokens
	if n < 1 {
		n = 1
	}
	d := def.RefillInterval / time.Duration(n)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
