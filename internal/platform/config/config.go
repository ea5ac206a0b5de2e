// Package config builds runtime configuration from environment variables so
// main stays lean. Each concern gets its own struct.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	DocuSeal DocuSeal
	Policy   Policy
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures database connection settings.
type Postgres struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis captures the webhook dedup ledger connection.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit/notification broker settings. Empty Brokers
// disables Kafka; audit falls back to outbox-only and notifications to noop.
type Kafka struct {
	Brokers           []string
	AuditTopic        string
	NotificationTopic string
}

// DocuSeal captures the e-signature provider integration settings.
type DocuSeal struct {
	BaseURL         string
	APIKey          string
	TemplateID      string
	WebhookSecret   string
	DownloadTimeout time.Duration
}

// Policy captures program policy knobs.
type Policy struct {
	// WaitingPeriodYears is the minimum elapsed time between a constituent's
	// applications.
	WaitingPeriodYears int
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("VOUCHSAFE_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:           envList("KAFKA_BROKERS"),
			AuditTopic:        envOr("KAFKA_AUDIT_TOPIC", "vouchsafe.audit"),
			NotificationTopic: envOr("KAFKA_NOTIFICATION_TOPIC", "vouchsafe.notifications"),
		},
		DocuSeal: DocuSeal{
			BaseURL:         envOr("DOCUSEAL_BASE_URL", "https://api.docuseal.com"),
			APIKey:          os.Getenv("DOCUSEAL_API_KEY"),
			TemplateID:      os.Getenv("DOCUSEAL_TEMPLATE_ID"),
			WebhookSecret:   os.Getenv("DOCUSEAL_WEBHOOK_SECRET"),
			DownloadTimeout: envDuration("DOCUSEAL_DOWNLOAD_TIMEOUT", 30*time.Second),
		},
		Policy: Policy{
			WaitingPeriodYears: envInt("WAITING_PERIOD_YEARS", 3),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
