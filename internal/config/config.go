package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string

	DBDriver    string
	DatabaseDSN string
	ResetDB     bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret string
	TokenTTL  time.Duration

	// HostelTimezone is the zone planned dates and times are interpreted in.
	HostelTimezone string
	// SeedFile points at a YAML or TOML file with the initial user set.
	SeedFile string

	NATSURL string

	ArchiveS3Bucket   string
	ArchiveS3Region   string
	ArchiveS3Endpoint string
	ArchiveS3Prefix   string

	SwaggerHost string
	LogLevel    slog.Level
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/hostel?charset=utf8mb4&parseTime=True&loc=UTC")
	}
	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DatabaseDSN:       dsn,
		ResetDB:           getEnvBool("RESET_DB", false),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         getEnv("JWT_SECRET", "change-me"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 24*time.Hour),
		HostelTimezone:    getEnv("HOSTEL_TIMEZONE", "Asia/Kolkata"),
		SeedFile:          os.Getenv("SEED_FILE"),
		NATSURL:           os.Getenv("NATS_URL"),
		ArchiveS3Bucket:   os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveS3Region:   getEnv("ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Endpoint: os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveS3Prefix:   getEnv("ARCHIVE_S3_PREFIX", "gatepasses/"),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
		LogLevel:          getEnvLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Location resolves HostelTimezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.HostelTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func getEnvLevel(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return level
}
