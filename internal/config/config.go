package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"kasbook/backend/internal/logger"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	AllowedOrigin   string        `yaml:"allowed_origin"   env:"ALLOWED_ORIGIN"          env-default:"http://127.0.0.1:3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"8s"`
}

type StorageConfig struct {
	Backend       string        `yaml:"backend"         env:"STORAGE_BACKEND"      env-default:"sqlite"`
	SQLitePath    string        `yaml:"sqlite_path"     env:"SQLITE_PATH"          env-default:"kasbook.db"`
	RedisAddr     string        `yaml:"redis_addr"      env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password"  env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"        env:"REDIS_DB"             env-default:"0"`
	DatabaseURL   string        `yaml:"database_url"    env:"DATABASE_URL"`
	QuotaBytes    int           `yaml:"quota_bytes"     env:"STORAGE_QUOTA_BYTES"  env-default:"5242880"`
	CacheTTL      time.Duration `yaml:"cache_ttl"       env:"STORAGE_CACHE_TTL"    env-default:"5s"`
	SyncEnabled   bool          `yaml:"sync_enabled"    env:"STORAGE_SYNC_ENABLED" env-default:"true"`
	SyncChannel   string        `yaml:"sync_channel"    env:"STORAGE_SYNC_CHANNEL" env-default:"kasbook:changes"`
}

type AuthConfig struct {
	Secret         string        `yaml:"secret"           env:"AUTH_SECRET"`
	Username       string        `yaml:"username"         env:"AUTH_USERNAME"         env-default:"owner"`
	Password       string        `yaml:"password"         env:"AUTH_PASSWORD"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"8h"`
}

type LogConfig struct {
	Level      string `yaml:"level"       env:"LOG_LEVEL"       env-default:"info"`
	Format     string `yaml:"format"      env:"LOG_FORMAT"      env-default:"console"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05Z07:00"`
	Output     string `yaml:"output"      env:"LOG_OUTPUT"      env-default:"stderr"`
}

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Load reads an optional .env file, then the YAML file named by CONFIG_PATH
// (if any), then the environment. Environment wins over YAML.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}

	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.CacheTTL < 0 {
		errs = append(errs, errors.New("STORAGE_CACHE_TTL must not be negative"))
	}
	if c.Storage.QuotaBytes < 0 {
		errs = append(errs, errors.New("STORAGE_QUOTA_BYTES must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Server.Port)
}

func (c Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: c.Log.TimeFormat,
		Output:     c.Log.Output,
	}
}
