package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Submit   SubmitConfig   `yaml:"submit"`
	GC       GCConfig       `yaml:"gc"`
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// StoreConfig selects the SQL backend
type StoreConfig struct {
	Driver     string `yaml:"driver"` // "postgres" or "sqlite"
	SQLitePath string `yaml:"sqlite_path"`
	Migrate    bool   `yaml:"migrate"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Database    string        `yaml:"database"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	SSLMode     string        `yaml:"sslmode"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
}

// AuthConfig holds the expected basic auth credential pair
type AuthConfig struct {
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

// RedisConfig holds Redis settings. Redis is optional and only backs the
// submission rate limit and the per-identifier submission lock.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SubmitConfig holds settings for the submission boundary
type SubmitConfig struct {
	RateLimit   int64         `yaml:"rate_limit"` // 0 disables
	RateWindow  time.Duration `yaml:"rate_window"`
	LockEnabled bool          `yaml:"lock_enabled"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	Policy      string        `yaml:"policy"` // CEL expression, empty allows everything
}

// GCConfig holds orphan reclamation settings
type GCConfig struct {
	OrphanGrace time.Duration `yaml:"orphan_grace"`
}

func defaults(serviceName string) *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        8080,
			Environment: "development",
			LogLevel:    "info",
			LogFormat:   "text",
		},
		Store: StoreConfig{
			Driver:     "postgres",
			SQLitePath: "catalog.db",
			Migrate:    false,
		},
		Database: DatabaseConfig{
			Host:        "localhost",
			Port:        5432,
			Database:    "catalog",
			User:        "catalog",
			Password:    "catalog",
			SSLMode:     "disable",
			MaxConns:    20,
			MinConns:    2,
			MaxIdleTime: 30 * time.Minute,
			MaxLifetime: 1 * time.Hour,
		},
		Auth: AuthConfig{
			User: "user",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Submit: SubmitConfig{
			RateWindow: time.Minute,
			LockTTL:    30 * time.Second,
		},
		GC: GCConfig{
			OrphanGrace: 24 * time.Hour,
		},
	}
}

// Load loads configuration from an optional YAML file and then from
// environment variables. Environment values win over file values.
func Load(serviceName, path string) (*Config, error) {
	cfg := defaults(serviceName)

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Service.Port = getEnvInt("PORT", c.Service.Port)
	c.Service.Environment = getEnv("ENVIRONMENT", c.Service.Environment)
	c.Service.LogLevel = getEnv("LOG_LEVEL", c.Service.LogLevel)
	c.Service.LogFormat = getEnv("LOG_FORMAT", c.Service.LogFormat)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.Migrate = getEnvBool("STORE_MIGRATE", c.Store.Migrate || c.Store.Driver == "sqlite")

	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.Database = getEnv("POSTGRES_DB", c.Database.Database)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("POSTGRES_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = getEnvInt("POSTGRES_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("POSTGRES_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxIdleTime = getEnvDuration("POSTGRES_MAX_IDLE_TIME", c.Database.MaxIdleTime)
	c.Database.MaxLifetime = getEnvDuration("POSTGRES_MAX_LIFETIME", c.Database.MaxLifetime)

	c.Auth.User = getEnv("AUTH_USER", c.Auth.User)
	c.Auth.Pass = getEnv("AUTH_PASS", c.Auth.Pass)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Submit.RateLimit = int64(getEnvInt("SUBMIT_RATE_LIMIT", int(c.Submit.RateLimit)))
	c.Submit.RateWindow = getEnvDuration("SUBMIT_RATE_WINDOW", c.Submit.RateWindow)
	c.Submit.LockEnabled = getEnvBool("SUBMIT_LOCK_ENABLED", c.Submit.LockEnabled)
	c.Submit.LockTTL = getEnvDuration("SUBMIT_LOCK_TTL", c.Submit.LockTTL)
	c.Submit.Policy = getEnv("SUBMIT_POLICY", c.Submit.Policy)

	c.GC.OrphanGrace = getEnvDuration("ORPHAN_GRACE", c.GC.OrphanGrace)
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if c.Auth.User == "" || c.Auth.Pass == "" {
		return fmt.Errorf("auth user and password are required")
	}

	if (c.Submit.RateLimit > 0 || c.Submit.LockEnabled) && !c.Redis.Enabled {
		return fmt.Errorf("submission rate limit and lock require redis")
	}

	if c.Submit.RateLimit > 0 && c.Submit.RateWindow < time.Second {
		return fmt.Errorf("rate window must be at least 1s")
	}

	if c.GC.OrphanGrace <= 0 {
		return fmt.Errorf("orphan grace must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
