package config

import (
	"os"

	pkgconfig "github.com/Skotchmaster/marketplace/pkg/config"
	"github.com/shopspring/decimal"
)

type Config struct {
	pkgconfig.Config

	EventsTopic string

	ESURL      string
	ESUser     string
	ESPassword string
	OrderIndex string

	StripeSecretKey     string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string
	Currency            string

	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal

	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func Load() Config {
	cfg := Config{
		Config: pkgconfig.Load(),

		EventsTopic: pkgconfig.EnvDefault("ORDER_EVENTS_TOPIC", "order_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		OrderIndex: pkgconfig.EnvDefault("ORDERS_INDEX", "orders"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:          pkgconfig.EnvDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           pkgconfig.EnvDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/cart"),
		Currency:            pkgconfig.EnvDefault("CURRENCY", "eur"),

		ShippingFee:           pkgconfig.EnvDecimalDefault("SHIPPING_FEE", decimal.RequireFromString("5.99")),
		FreeShippingThreshold: pkgconfig.EnvDecimalDefault("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(100)),
		TaxRate:               pkgconfig.EnvDecimalDefault("TAX_RATE", decimal.RequireFromString("0.19")),

		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     pkgconfig.EnvDefault("SMTP_FROM", "orders@marketplace.local"),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}
	return cfg
}

// Validate stops the process when a required setting is missing.
func (c Config) Validate() {
	pkgconfig.MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET")
	if c.StripeSecretKey != "" {
		pkgconfig.MustNonEmpty(c.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
	}
	pkgconfig.MustBeOneOf(c.Currency, "CURRENCY", "eur", "usd", "gbp")
}
