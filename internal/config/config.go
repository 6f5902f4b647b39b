package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storefront StorefrontConfig `mapstructure:"storefront"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig holds the remote catalog API configuration
type BackendConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
}

// StorageConfig selects where device-local snapshots (cart, config cache) live
type StorageConfig struct {
	Driver    string `mapstructure:"driver"` // "bolt" or "redis"
	Path      string `mapstructure:"path"`
	Bucket    string `mapstructure:"bucket"`
	CartKey   string `mapstructure:"cart_key"`
	ConfigKey string `mapstructure:"config_key"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	Database  int    `mapstructure:"database"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// StorefrontConfig holds storefront behaviour: order message, caching, revalidation
type StorefrontConfig struct {
	StoreName          string        `mapstructure:"store_name"`
	CatalogURL         string        `mapstructure:"catalog_url"`
	Currency           string        `mapstructure:"currency"`
	Locale             string        `mapstructure:"locale"`
	WhatsAppURL        string        `mapstructure:"whatsapp_url"`
	RevalidateInterval time.Duration `mapstructure:"revalidate_interval"`
	CatalogStaleTime   time.Duration `mapstructure:"catalog_stale_time"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from a YAML file with environment variable overrides.
// An empty path looks for config.yaml in the current directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// defaults and environment are enough to run
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	switch c.Storage.Driver {
	case "bolt", "redis":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storefront.RevalidateInterval < time.Second {
		return fmt.Errorf("storefront.revalidate_interval must be at least 1s, got %s", c.Storefront.RevalidateInterval)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.mode", "release")

	v.SetDefault("backend.base_url", "http://localhost:3000")
	v.SetDefault("backend.timeout", 15)
	v.SetDefault("backend.max_retries", 0)
	v.SetDefault("backend.max_requests_per_second", 20)

	v.SetDefault("storage.driver", "bolt")
	v.SetDefault("storage.path", "./storefront.db")
	v.SetDefault("storage.bucket", "storefront")
	v.SetDefault("storage.cart_key", "weldzone_cart")
	v.SetDefault("storage.config_key", "weldzone_config")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "weldzone:state:")

	v.SetDefault("storefront.store_name", "WeldZone")
	v.SetDefault("storefront.catalog_url", "https://weldzone.vercel.app/catalogo")
	v.SetDefault("storefront.currency", "MXN")
	v.SetDefault("storefront.locale", "es-MX")
	v.SetDefault("storefront.whatsapp_url", "https://api.whatsapp.com/send")
	v.SetDefault("storefront.revalidate_interval", "10m")
	v.SetDefault("storefront.catalog_stale_time", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
