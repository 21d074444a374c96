package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup helpers. Unset, empty or unparsable values fall back to def.

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(envStr(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(envStr(key, ""))
	if err != nil {
		return def
	}
	return n
}

// envFloat only accepts positive values.
func envFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(envStr(key, ""), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func envDur(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(envStr(key, ""))
	if err != nil {
		return def
	}
	return d
}

// envSet splits a comma separated list into an upper-cased set.
func envSet(key, def string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range strings.Split(envStr(key, def), ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			set[part] = true
		}
	}
	return set
}
