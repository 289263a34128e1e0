package config

import (
	"os"

	pkgconfig "github.com/Skotchmaster/marketplace/pkg/config"
)

type Config struct {
	ListenAddr string
	OrderURL   string
	JWTSecret  []byte
	LogLevel   string
}

func Load() *Config {
	cfg := &Config{
		ListenAddr: pkgconfig.EnvDefault("GATEWAY_ADDR", ":8080"),
		OrderURL:   os.Getenv("ORDER_URL"),
		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		LogLevel:   pkgconfig.EnvDefault("LOG_LEVEL", "info"),
	}
	pkgconfig.MustNonEmpty(cfg.OrderURL, "ORDER_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	return cfg
}
