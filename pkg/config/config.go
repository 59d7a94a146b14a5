package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Поддерживаемые источники метрик
const (
	SourceRandom  = "random"
	SourceStatic  = "static"
	SourceRuntime = "runtime"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	S3         S3Config
	Dynamo     DynamoConfig
	Reports    ReportsConfig
	Cycle      CycleConfig
	Source     SourceConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Compression     bool
	MetricsEnabled  bool
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
	Enabled     bool
	Host        string
	Port        string
	Password    string
	DB          int
	PoolSize    int
	VaultPrefix string
	VaultTTL    time.Duration
	CachePrefix string
	CacheTTL    time.Duration
}

type NATSConfig struct {
	Enabled      bool
	URL          string
	Stream       string
	FlushTimeout time.Duration
}

type CloudWatchConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	MetricsEnabled           bool
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32

	LogsEnabled       bool
	LogGroupName      string
	LogStreamName     string
	LogsBufferSize    int
	LogsFlushInterval time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	Enabled          bool
	TableReportIndex string
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	StrongReads      bool
}

type ReportsConfig struct {
	KeyPrefix         string
	HistoryWindow     int
	Retention         time.Duration
	DefaultLimit      int
	MaxLimit          int
	ArchivePerMinute  int
	FallbackToArchive bool
}

type CycleConfig struct {
	Port           string
	Interval       time.Duration
	Timeout        time.Duration
	Retention      time.Duration
	BaseURL        string
	RequestTimeout time.Duration
}

type SourceConfig struct {
	Kind             string
	SnapshotPath     string
	Seed             int64
	AnalysisInterval time.Duration
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	SessionMaxAge  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	env := &envReader{}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: env.duration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
			Compression:     getEnvBool("SERVER_COMPRESSION", true),
			MetricsEnabled:  getEnvBool("PROMETHEUS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", true),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "selfconfig"),
			MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:     getEnvBool("REDIS_ENABLED", false),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          env.integer("REDIS_DB", 0),
			PoolSize:    env.integer("REDIS_POOL_SIZE", 10),
			VaultPrefix: getEnv("REDIS_VAULT_PREFIX", "selfconfig:vault"),
			VaultTTL:    env.duration("REDIS_VAULT_TTL", "24h"),
			CachePrefix: getEnv("REDIS_CACHE_PREFIX", "selfconfig:cache"),
			CacheTTL:    env.duration("REDIS_CACHE_TTL", "10m"),
		},
		NATS: NATSConfig{
			Enabled:      getEnvBool("NATS_ENABLED", false),
			URL:          getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:       getEnv("NATS_STREAM", "SELFCONFIG"),
			FlushTimeout: env.duration("NATS_FLUSH_TIMEOUT", "2s"),
		},
		CloudWatch: CloudWatchConfig{
			Region:                   getEnv("AWS_REGION", "us-east-1"),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "SelfConfiguration/Health"),
			MetricsDimensions:        parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "service=selfconfig")),
			MetricsBufferSize:        env.integer("CLOUDWATCH_METRICS_BUFFER_SIZE", 20),
			MetricsFlushInterval:     env.duration("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "60s"),
			MetricsStorageResolution: int32(env.integer("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", 60)),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/selfconfig/api"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", hostnameOr("selfconfig")),
			LogsBufferSize:           env.integer("CLOUDWATCH_LOGS_BUFFER_SIZE", 100),
			LogsFlushInterval:        env.duration("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    env.duration("S3_PRESIGNED_TTL", "5m"),
		},
		Dynamo: DynamoConfig{
			Enabled:          getEnvBool("DYNAMO_ENABLED", false),
			TableReportIndex: getEnv("DYNAMO_TABLE_REPORT_INDEX", "selfconfig_report_index"),
			Region:           getEnv("DYNAMO_REGION", "us-east-1"),
			Endpoint:         getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:      getEnv("DYNAMO_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("DYNAMO_SECRET_ACCESS_KEY", ""),
			StrongReads:      getEnvBool("DYNAMO_STRONG_READS", false),
		},
		Reports: ReportsConfig{
			KeyPrefix:         getEnv("REPORTS_KEY_PREFIX", "reports"),
			HistoryWindow:     env.integer("REPORTS_HISTORY_WINDOW", 24),
			Retention:         time.Duration(env.integer("REPORTS_RETENTION_DAYS", 30)) * 24 * time.Hour,
			DefaultLimit:      env.integer("REPORTS_DEFAULT_LIMIT", 24),
			MaxLimit:          env.integer("REPORTS_MAX_LIMIT", 100),
			ArchivePerMinute:  env.integer("REPORTS_ARCHIVE_PER_MINUTE", 6),
			FallbackToArchive: getEnvBool("REPORTS_FALLBACK_TO_ARCHIVE", true),
		},
		Cycle: CycleConfig{
			Port:           getEnv("CYCLE_PORT", "8081"),
			Interval:       env.duration("CYCLE_INTERVAL", "60s"),
			Timeout:        env.duration("CYCLE_TIMEOUT", "10s"),
			Retention:      time.Duration(env.integer("CYCLE_RETENTION_DAYS", 7)) * 24 * time.Hour,
			BaseURL:        strings.TrimRight(getEnv("CYCLE_BASE_URL", ""), "/"),
			RequestTimeout: env.duration("CYCLE_REQUEST_TIMEOUT", "15s"),
		},
		Source: SourceConfig{
			Kind:             strings.ToLower(getEnv("METRICS_SOURCE", SourceRuntime)),
			SnapshotPath:     getEnv("METRICS_SNAPSHOT_PATH", ""),
			Seed:             int64(env.integer("METRICS_SEED", 0)),
			AnalysisInterval: env.duration("ANALYSIS_INTERVAL", "30s"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      strings.TrimSpace(getEnv("AUTH_BEARER_TOKEN", "")),
			SessionMaxAge:  env.duration("AUTH_SESSION_MAX_AGE", "12h"),
			RateLimitRPS:   env.float("RATE_LIMIT_RPS", 20),
			RateLimitBurst: env.integer("RATE_LIMIT_BURST", 40),
		},
	}

	if env.err != nil {
		return nil, env.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность секций
func (c *Config) Validate() error {
	var errs []error

	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		errs = append(errs, errors.New("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true"))
	}
	if c.Security.RateLimitRPS < 0 || c.Security.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST cannot be negative"))
	}

	switch c.Source.Kind {
	case SourceRandom, SourceRuntime:
	case SourceStatic:
		if c.Source.SnapshotPath == "" {
			errs = append(errs, errors.New("METRICS_SNAPSHOT_PATH is required when METRICS_SOURCE=static"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported METRICS_SOURCE %q", c.Source.Kind))
	}
	if c.Source.AnalysisInterval < time.Second {
		errs = append(errs, errors.New("ANALYSIS_INTERVAL must be >= 1s"))
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when S3_ENABLED=true"))
	}
	if c.Dynamo.Enabled && !c.S3.Enabled {
		errs = append(errs, errors.New("DYNAMO_ENABLED requires S3_ENABLED: the index points at archived objects"))
	}
	if c.Reports.MaxLimit < c.Reports.DefaultLimit {
		errs = append(errs, errors.New("REPORTS_MAX_LIMIT must be >= REPORTS_DEFAULT_LIMIT"))
	}

	if c.Cycle.Interval < 5*time.Second {
		errs = append(errs, errors.New("CYCLE_INTERVAL must be >= 5s"))
	}
	if c.Cycle.Timeout <= 0 || c.Cycle.Timeout >= c.Cycle.Interval {
		errs = append(errs, errors.New("CYCLE_TIMEOUT must be positive and shorter than CYCLE_INTERVAL"))
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// envReader разбирает типизированные переменные и запоминает первую ошибку
type envReader struct {
	err error
}

func (r *envReader) duration(key, defaultValue string) time.Duration {
	value, err := parseDuration(getEnv(key, defaultValue))
	if err != nil {
		r.fail(key, err)
	}
	return value
}

func (r *envReader) integer(key string, defaultValue int) int {
	value, err := getEnvInt(key, defaultValue)
	if err != nil {
		r.fail(key, err)
	}
	return value
}

func (r *envReader) float(key string, defaultValue float64) float64 {
	value, err := getEnvFloat(key, defaultValue)
	if err != nil {
		r.fail(key, err)
	}
	return value
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
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

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(value, 64)
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseDimensions разбирает "key=value,key2=value2"
func parseDimensions(raw string) map[string]string {
	dimensions := make(map[string]string)
	for _, item := range splitCSV(raw) {
		key, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		dimensions[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return dimensions
}

func hostnameOr(fallback string) string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
