package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USER", "market")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "learnmarket")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("GATEWAY_KEY_ID", "rzp_key")
	t.Setenv("GATEWAY_KEY_SECRET", "rzp_secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "INR", cfg.Commerce.Currency)
	assert.Equal(t, int64(100), cfg.Commerce.MinorUnitFactor)
	assert.True(t, cfg.Commerce.PlatformFeeRate.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 7, cfg.Commerce.RefundWindowDays)
	assert.Equal(t, 30*time.Minute, cfg.Commerce.OrderSessionTTL)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, float64(60), cfg.Progress.QuizPassingScore)
	assert.False(t, cfg.Progress.AssignmentAutoComplete)
	assert.Equal(t, "*/15 * * * *", cfg.Scheduler.SweepSchedule)
	assert.Equal(t, "market:secret@tcp(localhost:3306)/learnmarket?parseTime=true&charset=utf8mb4", cfg.DSN())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.io, https://b.io ,")
	t.Setenv("PLATFORM_FEE_RATE", "0.15")
	t.Setenv("ASSIGNMENT_AUTO_COMPLETE", "true")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("GATEWAY_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.io", "https://b.io"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Commerce.PlatformFeeRate.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, cfg.Progress.AssignmentAutoComplete)
	assert.Equal(t, "USD", cfg.Commerce.Currency)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		value         string
		errorContains string
	}{
		{name: "missing db host", key: "DB_HOST", value: "", errorContains: "DB_HOST is required"},
		{name: "invalid db port", key: "DB_PORT", value: "abc", errorContains: "invalid DB_PORT"},
		{name: "missing jwt secret", key: "JWT_SECRET", value: "", errorContains: "JWT_SECRET is required"},
		{name: "missing gateway secret", key: "GATEWAY_KEY_SECRET", value: "", errorContains: "GATEWAY_KEY_SECRET is required"},
		{name: "fee rate above one", key: "PLATFORM_FEE_RATE", value: "1.5", errorContains: "PLATFORM_FEE_RATE must be between 0 and 1"},
		{name: "invalid fee rate", key: "PLATFORM_FEE_RATE", value: "abc", errorContains: "invalid PLATFORM_FEE_RATE"},
		{name: "invalid gateway timeout", key: "GATEWAY_TIMEOUT", value: "soon", errorContains: "invalid GATEWAY_TIMEOUT"},
		{name: "zero minor unit factor", key: "MINOR_UNIT_FACTOR", value: "0", errorContains: "MINOR_UNIT_FACTOR must be positive"},
		{name: "invalid auto complete", key: "ASSIGNMENT_AUTO_COMPLETE", value: "maybe", errorContains: "invalid ASSIGNMENT_AUTO_COMPLETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadTestConfig(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "")

	cfg, err := LoadTestConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Database.Host)
	assert.Equal(t, "INR", cfg.Commerce.Currency)
	assert.Equal(t, float64(60), cfg.Progress.QuizPassingScore)
}
