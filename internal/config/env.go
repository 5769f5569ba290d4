package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Get returns the environment variable `key`, falling back to the trimmed
// contents of the file named by `key + "_FILE"`, then to def.
func Get(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return def
}

// GetInt parses Get(key) as an integer, returning def when unset or invalid.
func GetInt(key string, def int) int {
	return parseOr(key, def, strconv.Atoi)
}

// GetFloat parses Get(key) as a float64, returning def when unset or invalid.
func GetFloat(key string, def float64) float64 {
	return parseOr(key, def, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// GetBool accepts 1/t/true/y/yes and 0/f/false/n/no (case-insensitive).
func GetBool(key string, def bool) bool {
	switch strings.ToLower(Get(key, "")) {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}

// GetDuration parses Get(key) with ParseDuration, returning def when unset or invalid.
func GetDuration(key string, def time.Duration) time.Duration {
	return parseOr(key, def, ParseDuration)
}

// ParseDuration is time.ParseDuration plus a "d" suffix for whole days.
func ParseDuration(s string) (time.Duration, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if days, ok := strings.CutSuffix(lower, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(lower)
}

func parseOr[T any](key string, def T, parse func(string) (T, error)) T {
	val := Get(key, "")
	if val == "" {
		return def
	}
	v, err := parse(val)
	if err != nil {
		return def
	}
	return v
}
