package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers for the account ledger.
const (
	StorageYAML     = "yaml"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds all application configuration for both the server and the client.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Client   ClientConfig   `mapstructure:"client"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the TCP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AdminConfig controls the optional HTTP admin API.
// An empty Token leaves the /api/v1 routes unauthenticated.
type AdminConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Token     string `mapstructure:"token"`
	RateLimit int64  `mapstructure:"rate_limit"` // requests per minute per client IP, 0 = off
}

// Addr returns the admin HTTP listen address.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type ClientConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	CatalogFile string `mapstructure:"catalog_file"`
	Language    string `mapstructure:"language"`
}

// Addr returns the server address the client dials.
func (c ClientConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	Driver       string `mapstructure:"driver"` // yaml, postgres, sqlite
	AccountsFile string `mapstructure:"accounts_file"`
	CatalogFile  string `mapstructure:"catalog_file"`
	SQLitePath   string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig configures the shared session token table.
// When disabled, tokens live in process memory.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type SessionConfig struct {
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	LoginLimit  int64         `mapstructure:"login_limit"` // 0 disables the limiter
	LoginWindow time.Duration `mapstructure:"login_window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ATM_.
// Nested keys use underscore: ATM_SERVER_PORT, ATM_STORAGE_DRIVER, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8086)
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 8087)
	v.SetDefault("admin.token", "")
	v.SetDefault("admin.rate_limit", 60)
	v.SetDefault("client.host", "127.0.0.1")
	v.SetDefault("client.port", 8086)
	v.SetDefault("client.catalog_file", "languages-client.yml")
	v.SetDefault("client.language", "English")
	v.SetDefault("storage.driver", StorageYAML)
	v.SetDefault("storage.accounts_file", "accounts.yml")
	v.SetDefault("storage.catalog_file", "languages.yml")
	v.SetDefault("storage.sqlite_path", "atm.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "atm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.token_ttl", "1h")
	v.SetDefault("session.login_limit", 0)
	v.SetDefault("session.login_window", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ATM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars and defaults can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageYAML, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Session.TokenTTL <= 0 {
		return fmt.Errorf("session.token_ttl must be positive, got %s", c.Session.TokenTTL)
	}
	if c.Session.LoginLimit > 0 && c.Session.LoginWindow < time.Second {
		return fmt.Errorf("session.login_window must be at least 1s when login_limit is set")
	}
	return nil
}

// ParsePort validates a TCP port given on the command line (1-65535).
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}
