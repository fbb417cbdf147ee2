package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, time.Hour, cfg.JWT.AccessExpiry)
	assert.Equal(t, 5*time.Hour, cfg.JWT.RefreshExpiry)
	assert.Equal(t, "localhost:6379", cfg.Redis.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "Bookshelf", cfg.DynamoDB.TableName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("JWT_ALGORITHM", "HS512")
	t.Setenv("JWT_ACCESS_EXPIRY", "10m")
	t.Setenv("JWT_REFRESH_EXPIRY", "2h")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, 2*time.Hour, cfg.JWT.RefreshExpiry)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, time.Hour, cfg.JWT.AccessExpiry)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET_KEY": ""}},
		{name: "short secret", env: map[string]string{"JWT_SECRET_KEY": "short"}},
		{name: "asymmetric algorithm", env: map[string]string{"JWT_SECRET_KEY": testSecret, "JWT_ALGORITHM": "RS256"}},
		{name: "none algorithm", env: map[string]string{"JWT_SECRET_KEY": testSecret, "JWT_ALGORITHM": "none"}},
		{name: "refresh shorter than access", env: map[string]string{
			"JWT_SECRET_KEY":     testSecret,
			"JWT_ACCESS_EXPIRY":  "2h",
			"JWT_REFRESH_EXPIRY": "1h",
		}},
		{name: "negative expiry", env: map[string]string{"JWT_SECRET_KEY": testSecret, "JWT_ACCESS_EXPIRY": "-1m"}},
		{name: "sub-second expiry", env: map[string]string{"JWT_SECRET_KEY": testSecret, "JWT_ACCESS_EXPIRY": "500ms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
