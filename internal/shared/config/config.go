package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      Server
	Database    Database
	JWT         JWT
	Encryption  Encryption
	Aggregator  Aggregator
	PaymentRail PaymentRail
	Link        Link
	TLS         TLS
	Telemetry   Telemetry
	RateLimit   RateLimit
}

type Server struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWT struct {
	Secret string
}

type Encryption struct {
	Key string
}

// Aggregator holds the bank-data aggregator API credentials.
type Aggregator struct {
	BaseURL  string
	ClientID string
	Secret   string
}

// PaymentRail holds the payment-rail API credentials.
type PaymentRail struct {
	BaseURL     string
	Key         string
	Secret      string
	Environment string
}

// Link tunes the bank-linking and sync behavior.
type Link struct {
	SyncPageBudget         int
	FallbackToFirstAccount bool
	CustomerTimeout        time.Duration
}

type TLS struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type Telemetry struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

type RateLimit struct {
	AuthPerSecond float64
	AuthBurst     int
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	syncPageBudget, err := strconv.Atoi(getEnv("LINK_SYNC_PAGE_BUDGET", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid LINK_SYNC_PAGE_BUDGET: %w", err)
	}
	customerTimeout, err := time.ParseDuration(getEnv("LINK_CUSTOMER_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LINK_CUSTOMER_TIMEOUT: %w", err)
	}

	authPerSecond, err := strconv.ParseFloat(getEnv("RATE_LIMIT_AUTH_PER_SECOND", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_AUTH_PER_SECOND: %w", err)
	}
	authBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_AUTH_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_AUTH_BURST: %w", err)
	}

	// Parse allowed hosts (comma-separated list)
	allowedHostsStr := getEnv("ALLOWED_HOSTS", "")
	var allowedHosts []string
	if allowedHostsStr != "" {
		for _, host := range strings.Split(allowedHostsStr, ",") {
			host = strings.TrimSpace(host)
			if host != "" {
				allowedHosts = append(allowedHosts, host)
			}
		}
	}

	cfg := &Config{
		Server: Server{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "horizon"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "horizon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWT{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Encryption: Encryption{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Aggregator: Aggregator{
			BaseURL:  getEnv("AGGREGATOR_BASE_URL", "https://sandbox.aggregator.com"),
			ClientID: getEnv("AGGREGATOR_CLIENT_ID", ""),
			Secret:   getEnv("AGGREGATOR_SECRET", ""),
		},
		PaymentRail: PaymentRail{
			BaseURL:     getEnv("PAYMENTRAIL_BASE_URL", "https://api-sandbox.paymentrail.com"),
			Key:         getEnv("PAYMENTRAIL_KEY", ""),
			Secret:      getEnv("PAYMENTRAIL_SECRET", ""),
			Environment: getEnv("PAYMENTRAIL_ENV", "sandbox"),
		},
		Link: Link{
			SyncPageBudget:         syncPageBudget,
			FallbackToFirstAccount: getBoolEnv("LINK_FALLBACK_TO_FIRST_ACCOUNT", true),
			CustomerTimeout:        customerTimeout,
		},
		TLS: TLS{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: Telemetry{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "horizon-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
		RateLimit: RateLimit{
			AuthPerSecond: authPerSecond,
			AuthBurst:     authBurst,
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}
	if cfg.PaymentRail.Environment != "sandbox" && cfg.PaymentRail.Environment != "production" {
		return nil, fmt.Errorf("PAYMENTRAIL_ENV must be sandbox or production")
	}
	if cfg.Link.SyncPageBudget < 1 {
		return nil, fmt.Errorf("LINK_SYNC_PAGE_BUDGET must be at least 1")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *Database) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection in URL form, as the migrator expects it.
func (c *Database) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
