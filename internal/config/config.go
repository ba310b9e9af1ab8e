package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
	OTLPProtocol string
	OTelEnabled  bool
	MetricsPort  int

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	MigrateOnStart    bool

	SnowflakeNode int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PlanCatalogFile   string
	InvoiceConfigPath string

	AccessCacheTTL time.Duration

	Scheduler SchedulerConfig
}

// SchedulerConfig holds cron specs for the background sweeps.
type SchedulerConfig struct {
	Enabled            bool
	ExpirySweepSpec    string
	TrialNoticeSpec    string
	MonthlyResetSpec   string
	TrialNoticeDays    int
	JobTimeout         time.Duration
	LockTTL            time.Duration
	TrialNoticeWorkers int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "restobill"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol:      strings.ToLower(getenv("OTLP_PROTOCOL", "grpc")),
		OTelEnabled:       getenvBool("OTEL_ENABLED", false),
		MetricsPort:       getenvInt("METRICS_PORT", 0),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "restobill"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "restobill.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		MigrateOnStart:    getenvBool("DATABASE_MIGRATE", true),
		SnowflakeNode:     int64(getenvInt("SNOWFLAKE_NODE", 1)),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		PlanCatalogFile:   strings.TrimSpace(getenv("PLAN_CATALOG_FILE", "")),
		InvoiceConfigPath: strings.TrimSpace(getenv("INVOICE_CONFIG_PATH", "")),
		AccessCacheTTL:    getenvDuration("ACCESS_CACHE_TTL", 30*time.Second),
		Scheduler: SchedulerConfig{
			Enabled:            getenvBool("SCHEDULER_ENABLED", true),
			ExpirySweepSpec:    getenv("SCHEDULER_EXPIRY_SWEEP", "@every 15m"),
			TrialNoticeSpec:    getenv("SCHEDULER_TRIAL_NOTICE", "0 9 * * *"),
			MonthlyResetSpec:   getenv("SCHEDULER_MONTHLY_RESET", "5 0 1 * *"),
			TrialNoticeDays:    getenvInt("SCHEDULER_TRIAL_NOTICE_DAYS", 2),
			JobTimeout:         getenvDuration("SCHEDULER_JOB_TIMEOUT", 2*time.Minute),
			LockTTL:            getenvDuration("SCHEDULER_LOCK_TTL", 5*time.Minute),
			TrialNoticeWorkers: getenvInt("SCHEDULER_TRIAL_NOTICE_WORKERS", 4),
		},
	}

	return cfg
}

func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
