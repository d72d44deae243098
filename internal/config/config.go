package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Record store drivers.
const (
	DriverPostgres      = "postgres"
	DriverElasticsearch = "elasticsearch"
	DriverMemory        = "memory"
)

// Config holds the directory API configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Store         StoreConfig         `yaml:"store"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Filter        FilterConfig        `yaml:"filter"`
	Mail          MailConfig          `yaml:"mail"`
	Media         MediaConfig         `yaml:"media"`
	Jobs          JobsConfig          `yaml:"jobs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver           string `yaml:"driver"` // postgres, elasticsearch, memory (default: postgres)
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	DSN                string `yaml:"dsn"`
	Table              string `yaml:"table"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// ElasticsearchConfig holds Elasticsearch settings.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// RedisConfig holds the geo index and result cache settings.
// An empty Addrs list disables both.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	GeoIndex  bool     `yaml:"geo_index"`
}

// FilterConfig holds query engine settings.
type FilterConfig struct {
	DefaultPageSize     int     `yaml:"default_page_size"`
	MaxPageSize         int     `yaml:"max_page_size"`
	DefaultRadiusMeters float64 `yaml:"default_radius_meters"`
	CacheTTLSec         int     `yaml:"cache_ttl_sec"` // 0 disables the result cache
	PostalDataset       string  `yaml:"postal_dataset"`
}

// MailConfig holds SES settings. An empty From disables mail.
type MailConfig struct {
	Region string `yaml:"region"`
	From   string `yaml:"from"`
}

// MediaConfig holds object storage settings. An empty Endpoint disables uploads.
type MediaConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
	MaxImageBytes   int64  `yaml:"max_image_bytes"`
	CleanupDelaySec int    `yaml:"cleanup_delay_sec"`
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	Workers            int `yaml:"workers"`
	ReindexIntervalSec int `yaml:"reindex_interval_sec"` // 0 disables periodic geo reindexing
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, is loaded first.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverPostgres
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Postgres.Table == "" {
		c.Postgres.Table = "businesses"
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 20
	}
	if c.Postgres.MaxIdleConns <= 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Postgres.ConnMaxLifetimeSec <= 0 {
		c.Postgres.ConnMaxLifetimeSec = 300
	}
	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = "businesses"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "directory:"
	}
	if c.Filter.DefaultPageSize <= 0 {
		c.Filter.DefaultPageSize = 25
	}
	if c.Filter.MaxPageSize <= 0 {
		c.Filter.MaxPageSize = 100
	}
	if c.Filter.DefaultRadiusMeters <= 0 {
		c.Filter.DefaultRadiusMeters = 5000
	}
	if c.Mail.Region == "" {
		c.Mail.Region = "eu-central-1"
	}
	if c.Media.Bucket == "" {
		c.Media.Bucket = "directory-media"
	}
	if c.Media.MaxImageBytes <= 0 {
		c.Media.MaxImageBytes = 10 << 20
	}
	if c.Media.CleanupDelaySec <= 0 {
		c.Media.CleanupDelaySec = 15 * 60
	}
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the %s driver", DriverPostgres)
		}
	case DriverElasticsearch:
		if len(c.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("elasticsearch.addresses is required for the %s driver", DriverElasticsearch)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q, %q or %q, got %q",
			DriverPostgres, DriverElasticsearch, DriverMemory, c.Store.Driver)
	}
	if c.Filter.DefaultPageSize > c.Filter.MaxPageSize {
		return fmt.Errorf("filter.default_page_size %d exceeds filter.max_page_size %d",
			c.Filter.DefaultPageSize, c.Filter.MaxPageSize)
	}
	if c.Filter.CacheTTLSec < 0 {
		return fmt.Errorf("filter.cache_ttl_sec must not be negative, got %d", c.Filter.CacheTTLSec)
	}
	if c.Redis.GeoIndex && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.geo_index requires redis.addrs")
	}
	return nil
}

// CacheEnabled reports whether filter results are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return len(c.Redis.Addrs) > 0 && c.Filter.CacheTTLSec > 0
}

// loadDotEnv loads path into the process environment. Variables that are
// already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
