package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds the settings every service reads from the environment.
type Config struct {
	ServiceName     string
	ServerPort      int
	LogLevel        string
	DatabaseURL     string
	JWTAccessSecret []byte
	AuthHTTPURL     string
	KafkaBrokers    []string
}

func Load() Config {
	return Config{
		ServiceName:     EnvDefault("SERVICE_NAME", ""),
		ServerPort:      EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:        EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: []byte(os.Getenv("JWT_SECRET")),
		AuthHTTPURL:     os.Getenv("AUTH_URL"),
		KafkaBrokers:    CSV(os.Getenv("KAFKA_BROKERS")),
	}
}

// CSV splits a comma separated list, dropping blank entries.
func CSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	return parsed(key, def, strconv.Atoi)
}

// EnvDecimalDefault parses money-like values such as "5.99".
func EnvDecimalDefault(key string, def decimal.Decimal) decimal.Decimal {
	return parsed(key, def, decimal.NewFromString)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parsed falls back to def when the variable is unset or malformed.
func parsed[T any](key string, def T, parse func(string) (T, error)) T {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}
