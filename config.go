package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"checkout-service/database"
	awspkg "checkout-service/pkg/aws"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Port   string
	AppEnv string

	MongoURL string
	MongoDB  string

	// SessionStore selects where sessions are persisted: "mongo" or "postgres".
	SessionStore string
	Postgres     database.PostgresConfig

	// CatalogStore selects where stores are read from: "mongo" or "dynamodb".
	CatalogStore     string
	DynamoStoreTable string

	RedisURL string

	SessionTTL     time.Duration
	IdempotencyTTL time.Duration
	Currency       string
	MoneyScale     int32

	// EventSink is "sns", "kafka" or "none".
	EventSink           string
	CheckoutSNSTopicARN string
	KafkaBrokers        []string
	KafkaTopic          string

	JWTSecret          string
	AllowedOrigins     string
	CloudWatchEnabled  bool
	CloudWatchLogGroup string
	RateLimitPerMinute int
}

// secretSource is the part of the Secrets Manager client LoadConfig needs.
type secretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from .env and environment variables with
// optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	loadDotEnv()

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		ctx := context.Background()
		if awsCfg, err := awspkg.LoadAWSConfig(ctx); err == nil {
			applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads .env into the environment without overriding variables
// that are already set. Repeated calls are harmless.
func loadDotEnv() {
	_ = godotenv.Load()
}

func configFromEnv() (*Config, error) {
	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	idemTTL, err := time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	scale, err := strconv.ParseInt(getEnv("MONEY_SCALE", "2"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid MONEY_SCALE: %w", err)
	}
	rpm, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8092"),
		AppEnv:   getEnv("APP_ENV", "development"),
		MongoURL: os.Getenv("MONGO_URL"),
		MongoDB:  getEnv("MONGO_DB", "ecommerce"),

		SessionStore: strings.ToLower(getEnv("SESSION_STORE", "mongo")),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},

		CatalogStore:     strings.ToLower(getEnv("CATALOG_STORE", "mongo")),
		DynamoStoreTable: getEnv("DDB_TABLE_STORES", "stores"),

		RedisURL: os.Getenv("REDIS_URL"),

		SessionTTL:     sessionTTL,
		IdempotencyTTL: idemTTL,
		Currency:       strings.ToUpper(getEnv("CHECKOUT_CURRENCY", "USD")),
		MoneyScale:     int32(scale),

		EventSink:           strings.ToLower(getEnv("EVENT_SINK", "none")),
		CheckoutSNSTopicARN: os.Getenv("CHECKOUT_SNS_TOPIC_ARN"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "checkout-events"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AllowedOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		CloudWatchEnabled:  os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup: getEnv("CLOUDWATCH_LOG_GROUP", "/ecommerce/checkout-service"),
		RateLimitPerMinute: rpm,
	}
	return cfg, nil
}

// applySecrets overrides credentials with the values stored under checkout/*.
// Missing secrets leave the environment values in place.
func applySecrets(ctx context.Context, cfg *Config, sm secretSource) {
	if m, err := sm.GetSecretMap(ctx, "checkout/DB_CREDENTIALS"); err == nil {
		overrides := map[string]*string{
			"POSTGRES_USER":     &cfg.Postgres.User,
			"POSTGRES_PASSWORD": &cfg.Postgres.Password,
			"POSTGRES_DB":       &cfg.Postgres.DB,
			"POSTGRES_HOST":     &cfg.Postgres.Host,
			"POSTGRES_PORT":     &cfg.Postgres.Port,
		}
		for key, dst := range overrides {
			if v, ok := m[key]; ok && v != "" {
				*dst = v
			}
		}
	}
	if v, err := sm.GetSecret(ctx, "checkout/MONGO_URL"); err == nil && v != "" {
		cfg.MongoURL = v
	}
	if v, err := sm.GetSecret(ctx, "checkout/JWT_SECRET"); err == nil && v != "" {
		cfg.JWTSecret = v
	}
}

func (c *Config) validate() error {
	if c.MongoURL == "" {
		return fmt.Errorf("MONGO_URL is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CHECKOUT_CURRENCY must be a 3 letter code")
	}
	if c.MoneyScale < 0 {
		return fmt.Errorf("MONEY_SCALE must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}

	switch c.SessionStore {
	case "mongo":
	case "postgres":
		p := c.Postgres
		if p.User == "" || p.Password == "" || p.DB == "" || p.Host == "" {
			return fmt.Errorf("database config incomplete")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	switch c.CatalogStore {
	case "mongo", "dynamodb":
	default:
		return fmt.Errorf("unknown CATALOG_STORE %q", c.CatalogStore)
	}

	switch c.EventSink {
	case "none":
	case "sns":
		if c.CheckoutSNSTopicARN == "" {
			return fmt.Errorf("CHECKOUT_SNS_TOPIC_ARN is required for EVENT_SINK=sns")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for EVENT_SINK=kafka")
		}
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.EventSink)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
