package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 30, cfg.Documents.NetTermsDays)
	assert.Equal(t, "half_up", cfg.Documents.Rounding)
	assert.Equal(t, "postgres://postgres:@localhost:5432/tradebooks?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "dynamodb")
	t.Setenv("NET_TERMS_DAYS", "14")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DriverDynamoDB, cfg.Store.Driver)
	assert.Equal(t, 14, cfg.Documents.NetTermsDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "UnknownDriver", key: "STORE_DRIVER", val: "sqlite"},
		{name: "NegativeTerms", key: "NET_TERMS_DAYS", val: "-1"},
		{name: "ZeroTerms", key: "NET_TERMS_DAYS", val: "0"},
		{name: "NegativeValidity", key: "ESTIMATE_VALIDITY_DAYS", val: "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
