package config

import "time"

// CurrencyConfig drives the exchange-rate cache. Rates convert the
// base currency that prices are stored in into the currency the card
// gateway charges in.
type CurrencyConfig struct {
	SourceURL    string
	Base         string
	Target       string
	TTL          time.Duration
	FallbackRate float64
	RedisKey     string
}

// LoadCurrencyConfig reads CURRENCY_* variables.
func LoadCurrencyConfig() CurrencyConfig {
	return CurrencyConfig{
		SourceURL:    envStr("CURRENCY_RATE_URL", "https://open.er-api.com/v6/latest/USD"),
		Base:         envStr("CURRENCY_BASE", "USD"),
		Target:       envStr("CURRENCY_TARGET", "MMK"),
		TTL:          envDur("CURRENCY_TTL", time.Hour),
		FallbackRate: envFloat("CURRENCY_FALLBACK_RATE", 2100),
		RedisKey:     envStr("CURRENCY_REDIS_KEY", "fx:rate"),
	}
}
