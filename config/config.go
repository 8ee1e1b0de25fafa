package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App   AppConfig
	HTTP  ServerConfig
	MySQL MySQLConfig
	Redis RedisConfig
	Log   LogConfig
	Auth  AuthConfig
	Bold  BoldConfig
	Wompi WompiConfig
	Links LinksConfig
	Jobs  JobsConfig
}

type AppConfig struct {
	ServiceName string
	BaseURL     string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	ServiceBaseURL string
	HTTPTimeout    time.Duration
}

type BoldConfig struct {
	APIURL                string
	APIKey                string
	WebhookSecret         string
	AllowUnsignedWebhooks bool
	HTTPTimeout           time.Duration
}

type WompiConfig struct {
	APIURL          string
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	EventsSecret    string
	HTTPTimeout     time.Duration
}

type LinksConfig struct {
	MinAmountCOP        int64
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval time.Duration
	ExpireInterval    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "paylinks-service"),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getMinutesEnv("REDIS_CACHE_TTL_MINUTES", 10*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			ServiceBaseURL: getEnv("AUTH_SERVICE_BASE_URL", "http://localhost:8081"),
			HTTPTimeout:    getSecondsEnv("AUTH_HTTP_TIMEOUT_SECONDS", 5*time.Second),
		},
		Bold: BoldConfig{
			APIURL:                getEnv("BOLD_API_URL", "https://integrations.api.bold.co"),
			APIKey:                getEnv("BOLD_API_KEY", ""),
			WebhookSecret:         getEnv("BOLD_SECRET_KEY", ""),
			AllowUnsignedWebhooks: getBoolEnv("BOLD_ALLOW_UNSIGNED_WEBHOOKS", false),
			HTTPTimeout:           getSecondsEnv("BOLD_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Wompi: WompiConfig{
			APIURL:          getEnv("WOMPI_API_URL", "https://production.wompi.co/v1"),
			PublicKey:       getEnv("WOMPI_PUBLIC_KEY", ""),
			PrivateKey:      getEnv("WOMPI_PRIVATE_KEY", ""),
			IntegritySecret: getEnv("WOMPI_INTEGRITY_SECRET", ""),
			EventsSecret:    getEnv("WOMPI_EVENTS_SECRET", ""),
			HTTPTimeout:     getSecondsEnv("WOMPI_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Links: LinksConfig{
			MinAmountCOP:        int64(getIntEnv("LINKS_MIN_AMOUNT_COP", 1000)),
			ReconcileStaleAfter: getMinutesEnv("LINKS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("LINKS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("LINKS_RECONCILE_INTERVAL_MINUTES", 5*time.Minute),
			ExpireInterval:    getMinutesEnv("LINKS_EXPIRE_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
