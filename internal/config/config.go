package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PabloPavan/snipshare_api/internal"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	TagLockNone   = "none"
	TagLockMemory = "memory"
	TagLockRedis  = "redis"
)

type Config struct {
	Port           string        `yaml:"port"`
	BaseURL        string        `yaml:"baseURL"`
	DBDriver       string        `yaml:"dbDriver"`
	DatabaseURL    string        `yaml:"databaseURL"`
	DBMaxConns     int32         `yaml:"dbMaxConns"`
	SQLitePath     string        `yaml:"sqlitePath"`
	QueryTimeout   time.Duration `yaml:"queryTimeout"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	TagLock        string        `yaml:"tagLock"`
	TagLockTTL     time.Duration `yaml:"tagLockTTL"`
	RedisURL       string        `yaml:"redisURL"`
	StaticDir      string        `yaml:"staticDir"`
	Telemetry      bool          `yaml:"telemetry"`
	ServiceName    string        `yaml:"serviceName"`
}

func Defaults() Config {
	return Config{
		Port:           "8080",
		DBDriver:       DriverPostgres,
		DBMaxConns:     10,
		SQLitePath:     "data/snipshare.db",
		QueryTimeout:   3 * time.Second,
		MaxUploadBytes: 10 << 20,
		TagLock:        TagLockNone,
		TagLockTTL:     5 * time.Second,
		Telemetry:      true,
		ServiceName:    "snipshare-api",
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres driver")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("config: sqlitePath is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown dbDriver %q", c.DBDriver)
	}

	switch c.TagLock {
	case TagLockNone, TagLockMemory:
	case TagLockRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("config: redisURL is required for the redis tag lock")
		}
	default:
		return fmt.Errorf("config: unknown tagLock %q", c.TagLock)
	}

	if c.DBMaxConns <= 0 {
		return errors.New("config: dbMaxConns must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: maxUploadBytes must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = internal.Env("APP_PORT", cfg.Port)
	cfg.BaseURL = internal.Env("BASE_URL", cfg.BaseURL)
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(internal.Env("DB_DRIVER", cfg.DBDriver)))
	cfg.DatabaseURL = internal.Env("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = int32(parseIntEnv("DB_MAX_CONNS", int(cfg.DBMaxConns)))
	cfg.SQLitePath = internal.Env("SQLITE_PATH", cfg.SQLitePath)
	cfg.QueryTimeout = parseDurationEnv("DB_QUERY_TIMEOUT", cfg.QueryTimeout)
	cfg.MaxUploadBytes = int64(parseIntEnv("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.TagLock = strings.ToLower(strings.TrimSpace(internal.Env("TAG_LOCK", cfg.TagLock)))
	cfg.TagLockTTL = parseDurationEnv("TAG_LOCK_TTL", cfg.TagLockTTL)
	cfg.RedisURL = internal.Env("REDIS_URL", cfg.RedisURL)
	cfg.StaticDir = internal.Env("STATIC_DIR", cfg.StaticDir)
	cfg.Telemetry = parseBoolEnv("OTEL_ENABLED", cfg.Telemetry)
	cfg.ServiceName = internal.Env("OTEL_SERVICE_NAME", cfg.ServiceName)
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(internal.Env(key, ""))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return d
}

func parseIntEnv(key string, def int) int {
	val := strings.TrimSpace(internal.Env(key, ""))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return n
}

func parseBoolEnv(key string, def bool) bool {
	val := strings.TrimSpace(internal.Env(key, ""))
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return b
}
