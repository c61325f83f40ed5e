package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Platform     PlatformConfig
	Aggregator   AggregatorConfig
	Subscription SubscriptionConfig
	Sync         SyncConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PlatformConfig holds credentials for the loan-origination platform API
type PlatformConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// AggregatorConfig holds the default aggregator client configuration.
// Per-service-account overrides may replace any of these at runtime.
type AggregatorConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	Name         string
	WebhookMode  bool
}

// SubscriptionConfig drives the subscription bootstrap: which platform
// events to subscribe to, where they should be delivered, and the shared
// secret used for HMAC signature validation.
type SubscriptionConfig struct {
	TargetURL  string
	Secret     string
	EventNames []string
}

// SyncConfig controls the synchronous bank-details workflow
type SyncConfig struct {
	// Delay waited before fetching accounts in synchronous mode, to give
	// the aggregator's background sync time to finish
	Delay time.Duration
	// TransactionLookback bounds how far back transactions are fetched
	TransactionLookback time.Duration
}

// DefaultEventNames are the platform events handled by the dispatcher
var DefaultEventNames = []string{
	"aggregator_link_required",
	"bank_details_required",
	"service_account_created",
	"service_account_updated",
	"service_account_deleted",
}

const (
	defaultAPIVersion = "v2"
	defaultSyncDelay  = 10 * time.Second
	// Roughly five months
	defaultLookback = 3650 * time.Hour
)

func Load() (*Config, error) {
	var missing []string

	get := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			missing = append(missing, key)
		}
		return val
	}

	getOr := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	config := &Config{
		Server: ServerConfig{
			Port: get("SERVER_PORT"),
			Host: get("SERVER_HOST"),
		},
		Database: DatabaseConfig{
			Host:     get("DB_HOST"),
			Port:     get("DB_PORT"),
			User:     get("DB_USER"),
			Password: get("DB_PASSWORD"),
			DBName:   get("DB_NAME"),
			SSLMode:  get("DB_SSLMODE"),
		},
		Platform: PlatformConfig{
			BaseURL:      get("PLATFORM_BASE_URL"),
			ClientID:     get("PLATFORM_CLIENT_ID"),
			ClientSecret: get("PLATFORM_CLIENT_SECRET"),
		},
		Aggregator: AggregatorConfig{
			BaseURL:      get("AGGREGATOR_BASE_URL"),
			ClientID:     get("AGGREGATOR_CLIENT_ID"),
			ClientSecret: get("AGGREGATOR_CLIENT_SECRET"),
			APIVersion:   getOr("AGGREGATOR_API_VERSION", defaultAPIVersion),
			Name:         getOr("AGGREGATOR_NAME", "BUDGET_INSIGHT"),
			WebhookMode:  strings.EqualFold(os.Getenv("AGGREGATOR_WEBHOOK_MODE"), "true"),
		},
		Subscription: SubscriptionConfig{
			TargetURL:  get("SUBSCRIPTION_TARGET_URL"),
			Secret:     get("WEBHOOK_SECRET"),
			EventNames: splitList(os.Getenv("EVENT_NAMES")),
		},
		Sync: SyncConfig{
			Delay:               parseDurationOr("SYNC_DELAY", defaultSyncDelay),
			TransactionLookback: parseDurationOr("TRANSACTION_LOOKBACK", defaultLookback),
		},
	}

	if len(config.Subscription.EventNames) == 0 {
		config.Subscription.EventNames = DefaultEventNames
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return config, nil
}

// ConnectionString returns a DSN string for GORM
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
}

// MigrationURL returns a postgres:// URL for golang-migrate
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
