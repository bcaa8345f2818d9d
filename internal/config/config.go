// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Gateway   GatewayConfig
	Commerce  CommerceConfig
	Progress  ProgressConfig
	Renderer  RendererConfig
	Identity  IdentityConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// GatewayConfig holds payment gateway settings
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
	// WebhookKey is checked against X-API-Key on gateway callbacks; empty disables the check
	WebhookKey string
}

// CommerceConfig holds pricing, refund and payment lifetime settings
type CommerceConfig struct {
	Currency          string
	MinorUnitFactor   int64
	PlatformFeeRate   decimal.Decimal
	RefundWindowDays  int
	OrderSessionTTL   time.Duration
	PendingPaymentTTL time.Duration
}

// ProgressConfig holds learner progress settings
type ProgressConfig struct {
	QuizPassingScore       float64
	AssignmentAutoComplete bool
}

// RendererConfig holds certificate renderer settings
type RendererConfig struct {
	BaseURL string
	Timeout time.Duration
}

// IdentityConfig holds settings for the identity service used by the worker
type IdentityConfig struct {
	BaseURL string
	APIKey  string
}

// SchedulerConfig holds cron expressions for background sweeps
type SchedulerConfig struct {
	SweepSchedule     string
	ReconcileSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080" // default port
	}
	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	if cfg.JWT.AccessTokenExpiry, err = durationEnv("JWT_ACCESS_TOKEN_EXPIRY", time.Hour); err != nil {
		return nil, err
	}

	// Redis configuration
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost" // default
	}
	cfg.Redis.Host = redisHost

	if cfg.Redis.Port, err = intEnv("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD") // optional
	if cfg.Redis.DB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// SMTP configuration (worker only)
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = "localhost" // default
	}
	cfg.SMTP.Host = smtpHost

	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME") // optional
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD") // optional

	smtpFrom := os.Getenv("SMTP_FROM")
	if smtpFrom == "" {
		smtpFrom = "noreply@learnmarket.io" // default
	}
	cfg.SMTP.From = smtpFrom

	// Payment gateway configuration
	gatewayURL := os.Getenv("GATEWAY_BASE_URL")
	if gatewayURL == "" {
		gatewayURL = "https://api.razorpay.com" // default
	}
	cfg.Gateway.BaseURL = gatewayURL

	cfg.Gateway.KeyID = os.Getenv("GATEWAY_KEY_ID")
	if cfg.Gateway.KeyID == "" {
		return nil, fmt.Errorf("GATEWAY_KEY_ID is required")
	}
	cfg.Gateway.KeySecret = os.Getenv("GATEWAY_KEY_SECRET")
	if cfg.Gateway.KeySecret == "" {
		return nil, fmt.Errorf("GATEWAY_KEY_SECRET is required")
	}
	if cfg.Gateway.Timeout, err = durationEnv("GATEWAY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.Gateway.WebhookKey = os.Getenv("GATEWAY_WEBHOOK_KEY") // optional

	// Commerce configuration
	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "INR"
	}
	cfg.Commerce.Currency = strings.ToUpper(currency)

	minorUnits, err := intEnv("MINOR_UNIT_FACTOR", 100)
	if err != nil {
		return nil, err
	}
	if minorUnits < 1 {
		return nil, fmt.Errorf("MINOR_UNIT_FACTOR must be positive")
	}
	cfg.Commerce.MinorUnitFactor = int64(minorUnits)

	feeRateStr := os.Getenv("PLATFORM_FEE_RATE")
	if feeRateStr == "" {
		feeRateStr = "0.20"
	}
	feeRate, err := decimal.NewFromString(feeRateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_RATE: %w", err)
	}
	if feeRate.IsNegative() || feeRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("PLATFORM_FEE_RATE must be between 0 and 1")
	}
	cfg.Commerce.PlatformFeeRate = feeRate

	if cfg.Commerce.RefundWindowDays, err = intEnv("REFUND_WINDOW_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.Commerce.OrderSessionTTL, err = durationEnv("ORDER_SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Commerce.PendingPaymentTTL, err = durationEnv("PENDING_PAYMENT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	// Progress configuration
	passingStr := os.Getenv("QUIZ_PASSING_SCORE")
	if passingStr == "" {
		passingStr = "60"
	}
	passing, err := strconv.ParseFloat(passingStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid QUIZ_PASSING_SCORE: %w", err)
	}
	cfg.Progress.QuizPassingScore = passing

	autoComplete := os.Getenv("ASSIGNMENT_AUTO_COMPLETE")
	if autoComplete != "" {
		if cfg.Progress.AssignmentAutoComplete, err = strconv.ParseBool(autoComplete); err != nil {
			return nil, fmt.Errorf("invalid ASSIGNMENT_AUTO_COMPLETE: %w", err)
		}
	}

	// Certificate renderer configuration
	rendererURL := os.Getenv("CERTIFICATE_RENDERER_URL")
	if rendererURL == "" {
		rendererURL = "http://localhost:8090" // default
	}
	cfg.Renderer.BaseURL = rendererURL
	if cfg.Renderer.Timeout, err = durationEnv("CERTIFICATE_RENDERER_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	// Identity service configuration (worker only)
	identityURL := os.Getenv("IDENTITY_BASE_URL")
	if identityURL == "" {
		identityURL = "http://localhost:8081" // default
	}
	cfg.Identity.BaseURL = identityURL
	cfg.Identity.APIKey = os.Getenv("API_KEY") // optional

	// Scheduler configuration
	cfg.Scheduler.SweepSchedule = os.Getenv("SWEEP_SCHEDULE")
	if cfg.Scheduler.SweepSchedule == "" {
		cfg.Scheduler.SweepSchedule = "*/15 * * * *"
	}
	cfg.Scheduler.ReconcileSchedule = os.Getenv("RECONCILE_SCHEDULE")
	if cfg.Scheduler.ReconcileSchedule == "" {
		cfg.Scheduler.ReconcileSchedule = "0 3 * * *"
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// RedisAddr returns the host:port address of Redis
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// parseOrigins splits a comma-separated origin list, defaulting to all origins
func parseOrigins(raw string) []string {
	if raw == "" {
		// Default to allow all origins if not specified (for development)
		return []string{"*"}
	}

	origins := strings.Split(raw, ",")
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed = append(allowed, origin)
		}
	}
	// If no valid origins found, default to allow all
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
