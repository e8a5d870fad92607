package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port    string
	DBURL   string
	GinMode string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	CORSOrigin string

	// Hosted auth (Clerk). When JWKSURL is set, session tokens are verified
	// against the remote key set; otherwise JWTSecret is used.
	JWKSURL   string
	Issuer    string
	JWTSecret string

	LogLevel  string
	LogFormat string
}

// Load reads the environment, loading a .env file first when one exists.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found. Using system environment variables.")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		Port:    e.get("PORT", "8080"),
		DBURL:   e.must("DB_URL"),
		GinMode: e.get("GIN_MODE", ""),

		StripeSecretKey:     e.must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: e.must("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      e.get("STRIPE_CURRENCY", "usd"),

		CORSOrigin: e.get("CORS_ORIGIN", "*"),

		JWKSURL:   e.get("AUTH_JWKS_URL", ""),
		Issuer:    e.get("AUTH_ISSUER", ""),
		JWTSecret: e.get("JWT_SECRET", ""),

		LogLevel:  e.get("LOG_LEVEL", "info"),
		LogFormat: e.get("LOG_FORMAT", "json"),
	}

	if cfg.JWKSURL == "" && cfg.JWTSecret == "" {
		e.missing = append(e.missing, "AUTH_JWKS_URL or JWT_SECRET")
	}
	if cfg.JWKSURL != "" && cfg.Issuer == "" {
		e.missing = append(e.missing, "AUTH_ISSUER")
	}

	if len(e.missing) > 0 {
		errs := make([]error, 0, len(e.missing))
		for _, k := range e.missing {
			errs = append(errs, fmt.Errorf("missing required environment variable: %s", k))
		}
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

type env struct {
	lookup  func(string) (string, bool)
	missing []string
}

func (e *env) must(key string) string {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *env) get(key string, fallback string) string {
	if value, exists := e.lookup(key); exists && value != "" {
		return value
	}
	return fallback
}
