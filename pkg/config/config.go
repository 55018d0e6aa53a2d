package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Validation ValidationConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	Security   SecurityConfig
	Ingest     IngestConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ValidationConfig содержит настройки движка валидации.
// Пороги по умолчанию соответствуют calibration production-дашбордов.
type ValidationConfig struct {
	Interval          time.Duration
	VarianceThreshold float64
	SyncDelayMax      time.Duration
	SyncSettleDelay   time.Duration
	MemoryLimitMB     int
	ResponseTimeMaxMs float64
	SpikeSigma        float64
	TrendWindow       int
	HistoryLimit      int
	KnownUserTypes    []string
	ServiceName       string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
	Subject string
}

type CloudWatchConfig struct {
	Enabled         bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	LogGroupName    string
	LogStreamName   string
	Namespace       string
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
}

type IngestConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	interval, err := parseDuration(getEnv("VALIDATION_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_INTERVAL: %w", err)
	}

	variancePct, err := strconv.Atoi(getEnv("VALIDATION_VARIANCE_PCT", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_VARIANCE_PCT: %w", err)
	}

	syncDelayMax, err := parseDuration(getEnv("VALIDATION_SYNC_DELAY_MAX", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_SYNC_DELAY_MAX: %w", err)
	}

	syncSettle, err := parseDuration(getEnv("VALIDATION_SYNC_SETTLE", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_SYNC_SETTLE: %w", err)
	}

	memoryLimitMB, err := strconv.Atoi(getEnv("VALIDATION_MEMORY_LIMIT_MB", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_MEMORY_LIMIT_MB: %w", err)
	}

	responseTimeMax, err := strconv.ParseFloat(getEnv("VALIDATION_RESPONSE_TIME_MAX_MS", "100"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_RESPONSE_TIME_MAX_MS: %w", err)
	}

	spikeSigma, err := strconv.ParseFloat(getEnv("VALIDATION_SPIKE_SIGMA", "3"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_SPIKE_SIGMA: %w", err)
	}

	trendWindow, err := strconv.Atoi(getEnv("VALIDATION_TREND_WINDOW", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_TREND_WINDOW: %w", err)
	}

	historyLimit, err := strconv.Atoi(getEnv("VALIDATION_HISTORY_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_HISTORY_LIMIT: %w", err)
	}

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	ingestRPS, err := strconv.ParseFloat(getEnv("INGEST_RATE_LIMIT_PER_SECOND", "50"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_RATE_LIMIT_PER_SECOND: %w", err)
	}

	ingestBurst, err := strconv.Atoi(getEnv("INGEST_RATE_LIMIT_BURST", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Validation: ValidationConfig{
			Interval:          interval,
			VarianceThreshold: float64(variancePct) / 100.0,
			SyncDelayMax:      syncDelayMax,
			SyncSettleDelay:   syncSettle,
			MemoryLimitMB:     memoryLimitMB,
			ResponseTimeMaxMs: responseTimeMax,
			SpikeSigma:        spikeSigma,
			TrendWindow:       trendWindow,
			HistoryLimit:      historyLimit,
			KnownUserTypes:    splitCSV(getEnv("VALIDATION_KNOWN_USER_TYPES", "client,partner,admin")),
			ServiceName:       getEnv("SERVICE_NAME", "analytics-validator"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "validation"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           0,
			TTL:          redisTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "VALIDATION"),
			Subject: getEnv("NATS_SUBJECT", "validation.results"),
		},
		CloudWatch: CloudWatchConfig{
			Enabled:         getEnvBool("CLOUDWATCH_ENABLED", false),
			Region:          getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			LogGroupName:    getEnv("CLOUDWATCH_LOG_GROUP", "/analytics-validator/events"),
			LogStreamName:   getEnv("CLOUDWATCH_LOG_STREAM", "validation"),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "AnalyticsValidator/Checks"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
		},
		Ingest: IngestConfig{
			RateLimitPerSecond: ingestRPS,
			RateLimitBurst:     ingestBurst,
		},
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
