package config

import "time"

// RateLimitConfig describes one token bucket: Capacity tokens, refilled
// RefillTokens at a time every RefillInterval. Buckets idle for TTL
// expire from Redis.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig returns the global bucket applied to every route.
// RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are shorthands that
// override capacity and refill rate.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		c.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens, c.RefillInterval = 1, every
	}
	return c.normalize()
}

// LoadAuthRateLimitConfig is the stricter bucket in front of login,
// register and password reset: a small burst refilled once a minute,
// keyed by client IP and route.
func LoadAuthRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("AUTH_RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("AUTH_RATE_LIMIT_CAPACITY", 5),
		RefillTokens:   1,
		RefillInterval: envDur("AUTH_RATE_LIMIT_REFILL_INTERVAL", time.Minute),
		TTL:            envDur("AUTH_RATE_LIMIT_TTL", 30*time.Minute),
		KeyStrategy:    "ip_route",
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl") + ":auth",
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return c.normalize()
}

// normalize clamps values so a bucket always holds at least one token
// and outlives five refill intervals.
func (c RateLimitConfig) normalize() RateLimitConfig {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}
