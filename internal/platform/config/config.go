package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strs "pymegate/pkg/platform/strings"
)

// Config captures everything the gateway reads from the environment so main
// stays lean. Only cmd/server touches this; components receive the concrete
// values they need.
type Config struct {
	Addr        string
	Environment string // "production" suppresses debug confirmation tokens

	JWTSigningKey string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	Google GoogleConfig
	SMTP   SMTPConfig
}

// RedisConfig holds connection tuning for the optional Redis login throttle.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the optional audit sink settings.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// GoogleConfig holds the external identity provider credentials. The
// provider is optional; endpoints answer 501 when it is not configured.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// SMTPConfig holds outbound mail settings. Mail is optional outside
// production; request-email-change reports the send outcome either way.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// IsProduction reports whether debug affordances (echoed confirmation
// tokens) must be suppressed and mail failures become hard errors.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Configured reports whether Google OAuth can be used.
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Configured reports whether outbound mail can be sent.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port != 0 && s.User != "" && s.Pass != ""
}

// FromEnv builds Config from environment variables with development
// defaults. A missing JWT key falls back to a dev secret so local startup
// works; production deployments must override it.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("PYMEGATE_ADDR", ":4321"),
		Environment:   getenv("PYMEGATE_ENV", "development"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			AuditTopic: getenv("KAFKA_AUDIT_TOPIC", "pymegate.audit"),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  getenv("GOOGLE_CALLBACK_URL", "http://localhost:4321/auth/google/callback"),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: getenvInt("SMTP_PORT", 0),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getenv("FROM_EMAIL", "no-reply@example.com"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strs.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
