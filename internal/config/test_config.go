package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadTestConfig loads the configuration used by tests.
// Commerce and progress settings always carry their production defaults;
// database settings are filled only when every TEST_DB_* variable is present,
// which allows tests to fall back to mocks otherwise.
func LoadTestConfig() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist - it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Logging: LoggingConfig{Level: "debug"},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
		JWT: JWTConfig{
			Secret:            "test-secret-key",
			AccessTokenExpiry: time.Hour,
		},
		Gateway: GatewayConfig{
			KeyID:     "rzp_test_key",
			KeySecret: "test-gateway-secret",
			Timeout:   2 * time.Second,
		},
		Commerce: CommerceConfig{
			Currency:          "INR",
			MinorUnitFactor:   100,
			PlatformFeeRate:   decimal.RequireFromString("0.20"),
			RefundWindowDays:  7,
			OrderSessionTTL:   30 * time.Minute,
			PendingPaymentTTL: 24 * time.Hour,
		},
		Progress: ProgressConfig{
			QuizPassingScore: 60,
		},
		Renderer: RendererConfig{Timeout: 2 * time.Second},
		Scheduler: SchedulerConfig{
			SweepSchedule:     "*/15 * * * *",
			ReconcileSchedule: "0 3 * * *",
		},
	}

	dbHost := os.Getenv("TEST_DB_HOST")
	dbPortStr := os.Getenv("TEST_DB_PORT")
	dbUser := os.Getenv("TEST_DB_USER")
	dbPassword := os.Getenv("TEST_DB_PASSWORD")
	dbName := os.Getenv("TEST_DB_NAME")
	if dbHost == "" || dbPortStr == "" || dbUser == "" || dbPassword == "" || dbName == "" {
		// Return config without database settings
		return cfg, nil
	}

	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}

	cfg.Database = DatabaseConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
	}

	return cfg, nil
}
