package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

// Store backends
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config holds all configuration for the service
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Store         StoreConfig         `mapstructure:"store"`
	Database      PostgresConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	Clips         ClipsConfig         `mapstructure:"clips"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	APIToken        string        `mapstructure:"api_token"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// StoreConfig selects and configures the document store backend
type StoreConfig struct {
	Backend         string        `mapstructure:"backend"`
	ProjectID       string        `mapstructure:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	DatabaseID      string        `mapstructure:"database_id"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Demo            bool          `mapstructure:"demo"` // memory backend only
	DemoInterval    time.Duration `mapstructure:"demo_interval"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	Channel  string        `mapstructure:"channel"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether a Redis host was configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// StreamConfig describes one live query
type StreamConfig struct {
	Collection string `mapstructure:"collection"`
	OrderField string `mapstructure:"order_field"`
	Limit      int    `mapstructure:"limit"`
}

type SubscriptionsConfig struct {
	Classifications StreamConfig `mapstructure:"classifications"`
	BatDetections   StreamConfig `mapstructure:"bat_detections"`
	DeviceStatus    StreamConfig `mapstructure:"device_status"`
	DiagnosticLimit int          `mapstructure:"diagnostic_limit"`
}

type ClipsConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom is Load with explicit config search paths
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOUNDSCAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Load config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	trimConfig(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// setDefaults must name every key: Unmarshal only sees environment
// overrides for keys viper already knows
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.backend", BackendFirestore)
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.credentials_file", "")
	v.SetDefault("store.database_id", "")
	v.SetDefault("store.poll_interval", "5s")
	v.SetDefault("store.demo", false)
	v.SetDefault("store.demo_interval", "2s")

	// Edge database defaults
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "soundscape")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 4)

	// Redis defaults
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "soundscape:dashboard:view")
	v.SetDefault("redis.channel", "soundscape:dashboard:updates")
	v.SetDefault("redis.ttl", "10m")

	// Subscription defaults
	v.SetDefault("subscriptions.classifications.collection", "classifications")
	v.SetDefault("subscriptions.classifications.order_field", "syncTime")
	v.SetDefault("subscriptions.classifications.limit", 100)
	v.SetDefault("subscriptions.bat_detections.collection", "batDetections")
	v.SetDefault("subscriptions.bat_detections.order_field", "detectionTime")
	v.SetDefault("subscriptions.bat_detections.limit", 50)
	v.SetDefault("subscriptions.device_status.collection", "deviceStatus")
	v.SetDefault("subscriptions.device_status.order_field", "recordedAt")
	v.SetDefault("subscriptions.device_status.limit", 1)
	v.SetDefault("subscriptions.diagnostic_limit", 5)

	// Clip defaults
	v.SetDefault("clips.dir", "")
	v.SetDefault("clips.base_url", "/api/v1/clips")

	// Monitoring defaults
	v.SetDefault("monitoring.log_level", "info")
}

// Deployment tooling tends to leave trailing newlines on pasted secrets
func trimConfig(config *Config) {
	config.Store.Backend = trim(config.Store.Backend)
	config.Store.ProjectID = trim(config.Store.ProjectID)
	config.Store.CredentialsFile = trim(config.Store.CredentialsFile)
	config.Store.DatabaseID = trim(config.Store.DatabaseID)
	config.Database.Host = trim(config.Database.Host)
	config.Database.User = trim(config.Database.User)
	config.Database.Password = trim(config.Database.Password)
	config.Database.DBName = trim(config.Database.DBName)
	config.Redis.Host = trim(config.Redis.Host)
	config.Redis.Password = trim(config.Redis.Password)
	config.Server.APIToken = trim(config.Server.APIToken)
	config.Clips.Dir = trim(config.Clips.Dir)
}

func trim(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

func validateConfig(config *Config) error {
	switch config.Store.Backend {
	case BackendFirestore:
		if config.Store.ProjectID == "" {
			return fmt.Errorf("store project_id is required for the firestore backend")
		}
	case BackendPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}

	streams := map[string]StreamConfig{
		"classifications": config.Subscriptions.Classifications,
		"bat_detections":  config.Subscriptions.BatDetections,
		"device_status":   config.Subscriptions.DeviceStatus,
	}
	for name, s := range streams {
		if s.Collection == "" {
			return fmt.Errorf("subscriptions.%s.collection is required", name)
		}
		if s.Limit <= 0 {
			return fmt.Errorf("subscriptions.%s.limit must be positive", name)
		}
	}
	return nil
}
