package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Webhook  WebhookConfig
	Checkout CheckoutConfig
	Jobs     JobConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	// URL takes precedence when set; the discrete fields below are the
	// fallback for local development.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  int // minutes
	RefreshTokenExpiry int // hours
}

// GatewayConfig configures the outbound payment gateway client.
type GatewayConfig struct {
	BaseURL     string
	MerchantID  string
	Salt        string
	SaltIndex   string
	Environment string // SANDBOX or PRODUCTION
	RedirectURL string
}

// WebhookConfig configures inbound webhook authentication. The gateway
// sends Authorization = hex(sha256(username:password)).
type WebhookConfig struct {
	CallbackUsername string
	CallbackPassword string
}

// CheckoutConfig holds the stock-hold and payment-window timings plus
// the emergency-order sanity ceiling (minor units).
type CheckoutConfig struct {
	ReservationTTLSeconds       int
	PaymentWindowSeconds        int
	EmergencyAmountCeilingMinor int64
}

// JobConfig controls the periodic worker cadence and batch sizes.
type JobConfig struct {
	ReconcileIntervalSeconds int
	ExpiryIntervalSeconds    int
	QueueBatchSize           int
	ReconcileWindowHours     int
}

const (
	GatewayEnvSandbox    = "SANDBOX"
	GatewayEnvProduction = "PRODUCTION"
)

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenExpiry:  getEnvInt("JWT_ACCESS_EXPIRY", 15),
			RefreshTokenExpiry: getEnvInt("JWT_REFRESH_EXPIRY", 72),
		},
		Gateway: GatewayConfig{
			BaseURL:     getEnv("GATEWAY_BASE_URL", ""),
			MerchantID:  getEnv("GATEWAY_MERCHANT_ID", ""),
			Salt:        getEnv("GATEWAY_SALT", ""),
			SaltIndex:   getEnv("GATEWAY_SALT_INDEX", "1"),
			Environment: getEnv("GATEWAY_ENV", GatewayEnvSandbox),
			RedirectURL: getEnv("GATEWAY_REDIRECT_URL", "http://localhost:3000/payment/callback"),
		},
		Webhook: WebhookConfig{
			CallbackUsername: getEnv("WEBHOOK_CALLBACK_USERNAME", ""),
			CallbackPassword: getEnv("WEBHOOK_CALLBACK_PASSWORD", ""),
		},
		Checkout: CheckoutConfig{
			ReservationTTLSeconds:       getEnvInt("RESERVATION_TTL_SECONDS", 1800),
			PaymentWindowSeconds:        getEnvInt("PAYMENT_WINDOW_SECONDS", 840),
			EmergencyAmountCeilingMinor: getEnvInt64("EMERGENCY_AMOUNT_CEILING_MINOR", 10_000_000),
		},
		Jobs: JobConfig{
			ReconcileIntervalSeconds: getEnvInt("RECONCILE_INTERVAL_SECONDS", 300),
			ExpiryIntervalSeconds:    getEnvInt("EXPIRY_INTERVAL_SECONDS", 120),
			QueueBatchSize:           getEnvInt("WEBHOOK_QUEUE_BATCH_SIZE", 50),
			ReconcileWindowHours:     getEnvInt("RECONCILE_WINDOW_HOURS", 24),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required config is present. Missing payment
// credentials are fatal outside development: the webhook pipeline
// cannot authenticate anything without them.
func (c *Config) Validate() error {
	if c.Gateway.Environment != GatewayEnvSandbox && c.Gateway.Environment != GatewayEnvProduction {
		return fmt.Errorf("GATEWAY_ENV must be SANDBOX or PRODUCTION, got %q", c.Gateway.Environment)
	}

	if c.Checkout.ReservationTTLSeconds <= 0 {
		return fmt.Errorf("RESERVATION_TTL_SECONDS must be positive")
	}
	if c.Checkout.PaymentWindowSeconds <= 0 {
		return fmt.Errorf("PAYMENT_WINDOW_SECONDS must be positive")
	}
	if c.Checkout.PaymentWindowSeconds > c.Checkout.ReservationTTLSeconds {
		return fmt.Errorf("PAYMENT_WINDOW_SECONDS must not exceed RESERVATION_TTL_SECONDS")
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.URL == "" && c.Database.Password == "" {
			return fmt.Errorf("DATABASE_URL or DB_PASSWORD must be set in production")
		}
		if c.Gateway.MerchantID == "" || c.Gateway.Salt == "" {
			return fmt.Errorf("GATEWAY_MERCHANT_ID and GATEWAY_SALT must be set in production")
		}
		if c.Webhook.CallbackUsername == "" || c.Webhook.CallbackPassword == "" {
			return fmt.Errorf("WEBHOOK_CALLBACK_USERNAME and WEBHOOK_CALLBACK_PASSWORD must be set in production")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
