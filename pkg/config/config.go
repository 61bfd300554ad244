package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Cache       CacheConfig
	Eligibility EligibilityConfig
	Funding     FundingJobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig verifies staff tokens minted by the identity provider.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles the redis-backed lookup cache.
type CacheConfig struct {
	Enabled        bool
	TermMappingTTL time.Duration
	CourseListTTL  time.Duration
	KeyPrefix      string
}

// EligibilityConfig carries the defaults for the term and funding rules.
type EligibilityConfig struct {
	TermCutoffDate   string
	TermTimezone     string
	KindergartenRate decimal.Decimal
	GradesRate       decimal.Decimal
}

// FundingJobsConfig controls the background funding recompute.
type FundingJobsConfig struct {
	RecomputeSchedule string
	WorkerConcurrency int
	WorkerRetries     int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:        v.GetBool("ENABLE_CACHE"),
		TermMappingTTL: parseDuration(v.GetString("TERM_MAPPING_CACHE_TTL"), 10*time.Minute),
		CourseListTTL:  parseDuration(v.GetString("COURSE_LIST_CACHE_TTL"), 30*time.Minute),
		KeyPrefix:      v.GetString("CACHE_KEY_PREFIX"),
	}

	cfg.Eligibility = EligibilityConfig{
		TermCutoffDate:   v.GetString("TERM_CUTOFF_DATE"),
		TermTimezone:     v.GetString("TERM_TIMEZONE"),
		KindergartenRate: parseDecimal(v.GetString("FUNDING_KINDERGARTEN_RATE"), "450.50"),
		GradesRate:       parseDecimal(v.GetString("FUNDING_GRADES_RATE"), "901.00"),
	}

	cfg.Funding = FundingJobsConfig{
		RecomputeSchedule: v.GetString("FUNDING_RECOMPUTE_SCHEDULE"),
		WorkerConcurrency: v.GetInt("FUNDING_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("FUNDING_WORKER_RETRIES"),
	}

	return cfg, nil
}

// Location resolves the configured term timezone, falling back to UTC.
func (c EligibilityConfig) Location() *time.Location {
	if c.TermTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TermTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rtd_connect")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("TERM_MAPPING_CACHE_TTL", "10m")
	v.SetDefault("COURSE_LIST_CACHE_TTL", "30m")
	v.SetDefault("CACHE_KEY_PREFIX", "rtd")

	v.SetDefault("TERM_CUTOFF_DATE", "2025-01-30")
	v.SetDefault("TERM_TIMEZONE", "America/Edmonton")
	v.SetDefault("FUNDING_KINDERGARTEN_RATE", "450.50")
	v.SetDefault("FUNDING_GRADES_RATE", "901.00")

	v.SetDefault("FUNDING_RECOMPUTE_SCHEDULE", "@daily")
	v.SetDefault("FUNDING_WORKER_CONCURRENCY", 1)
	v.SetDefault("FUNDING_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDecimal(raw, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.RequireFromString(fallback)
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
