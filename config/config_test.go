package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"DB_URL":                "postgres://localhost/plantcare",
		"STRIPE_SECRET_KEY":     "sk_test_123",
		"STRIPE_WEBHOOK_SECRET": "whsec_123",
		"JWT_SECRET":            "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "usd", cfg.StripeCurrency)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestFromLookup_MissingRequired(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{}))
	require.Error(t, err)

	assert.Contains(t, err.Error(), "DB_URL")
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.Contains(t, err.Error(), "AUTH_JWKS_URL or JWT_SECRET")
}

func TestFromLookup_JWKSNeedsIssuer(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"DB_URL":                "postgres://localhost/plantcare",
		"STRIPE_SECRET_KEY":     "sk_test_123",
		"STRIPE_WEBHOOK_SECRET": "whsec_123",
		"AUTH_JWKS_URL":         "https://clerk.example.com/.well-known/jwks.json",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_ISSUER")
}
