package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultServiceName is reported when SERVICE_NAME is unset; each binary replaces it with its own name.
const DefaultServiceName = "course-progress"

// Cache drivers supported by the read-through cache.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

type Config struct {
	Env         string
	ServiceName string
	Version     string
	Port        int
	APIPrefix   string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Directory DirectoryConfig
	Cache     CacheConfig
	Echo      EchoConfig
	Progress  ProgressConfig
	Tracing   TracingConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	ConnLifetime  time.Duration
	ConnIdleTime  time.Duration
	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DirectoryConfig points the directory clients at their peer services.
type DirectoryConfig struct {
	CourseServiceURL     string
	EnrollmentServiceURL string
	Timeout              time.Duration
}

// CacheConfig governs the read-through cache in front of list and summary reads.
type CacheConfig struct {
	Enabled bool
	Driver  string
	TTL     time.Duration
}

// EchoConfig controls how best-effort cross-service echoes are dispatched.
type EchoConfig struct {
	Async      bool
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// ProgressConfig tunes lesson progress ingestion.
type ProgressConfig struct {
	ClampWatchedSeconds bool
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.ServiceName = v.GetString("SERVICE_NAME")
	cfg.Version = v.GetString("SERVICE_VERSION")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnLifetime:  v.GetDuration("DB_CONN_MAX_LIFETIME"),
		ConnIdleTime:  v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Directory = DirectoryConfig{
		CourseServiceURL:     strings.TrimRight(v.GetString("COURSE_SERVICE_URL"), "/"),
		EnrollmentServiceURL: strings.TrimRight(v.GetString("ENROLLMENT_SERVICE_URL"), "/"),
		Timeout:              parseDuration(v.GetString("DIRECTORY_TIMEOUT"), 3*time.Second),
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("CACHE_DRIVER")))
	if driver != CacheDriverRedis {
		driver = CacheDriverMemory
	}
	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		Driver:  driver,
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.Echo = EchoConfig{
		Async:      v.GetBool("ECHO_ASYNC"),
		Workers:    v.GetInt("ECHO_WORKERS"),
		BufferSize: v.GetInt("ECHO_BUFFER_SIZE"),
		MaxRetries: v.GetInt("ECHO_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("ECHO_RETRY_DELAY"), time.Second),
	}

	cfg.Progress = ProgressConfig{
		ClampWatchedSeconds: v.GetBool("PROGRESS_CLAMP_WATCHED_SECONDS"),
	}

	ratio := v.GetFloat64("OTEL_SAMPLER_RATIO")
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	cfg.Tracing = TracingConfig{
		Enabled:      v.GetBool("OTEL_ENABLED"),
		OTLPEndpoint: strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		SampleRatio:  ratio,
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("SERVICE_NAME", DefaultServiceName)
	v.SetDefault("SERVICE_VERSION", "0.1.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "elearning")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_MIGRATIONS_DIR", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("COURSE_SERVICE_URL", "http://localhost:8082")
	v.SetDefault("ENROLLMENT_SERVICE_URL", "http://localhost:8083")
	v.SetDefault("DIRECTORY_TIMEOUT", "3s")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_DRIVER", CacheDriverMemory)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("ECHO_ASYNC", false)
	v.SetDefault("ECHO_WORKERS", 2)
	v.SetDefault("ECHO_BUFFER_SIZE", 64)
	v.SetDefault("ECHO_MAX_RETRIES", 0)
	v.SetDefault("ECHO_RETRY_DELAY", "1s")

	v.SetDefault("PROGRESS_CLAMP_WATCHED_SECONDS", false)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
