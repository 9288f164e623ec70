package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Export   ExportConfig   `mapstructure:"export"`
	Category CategoryConfig `mapstructure:"category"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServiceConfig holds the UGC content service API configuration
type ServiceConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	APIKey               string   `mapstructure:"api_key"`
	AccountID            string   `mapstructure:"account_id"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	CooldownMinutes      int      `mapstructure:"cooldown_minutes"`
	Proxies              []string `mapstructure:"proxies"`
}

// ExportConfig holds feed-job configuration
type ExportConfig struct {
	ChunkSize              int `mapstructure:"chunk_size"`
	MaxWorkers             int `mapstructure:"max_workers"`
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`
	CheckpointInterval     int `mapstructure:"checkpoint_interval"`
}

// CategoryConfig holds every tunable of the category index core.
// All sizing knobs live here so a deployment can move the strategy
// boundaries without a code change.
type CategoryConfig struct {
	Separator               string `mapstructure:"separator"`
	MaxObjectKeys           int    `mapstructure:"max_object_keys"`
	SmallCatalogMax         int    `mapstructure:"small_catalog_max"`
	LargeCatalogMin         int    `mapstructure:"large_catalog_min"`
	EstimationCap           int    `mapstructure:"estimation_cap"`
	ChunkSize               int    `mapstructure:"chunk_size"`
	MaxTraversalDepth       int    `mapstructure:"max_traversal_depth"`
	PrimaryMapCap           int    `mapstructure:"primary_map_cap"`
	OverflowCacheCap        int    `mapstructure:"overflow_cache_cap"`
	MaxCategoriesPerProduct int    `mapstructure:"max_categories_per_product"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("service.base_url", "https://api.example-ugc.com")
	viper.SetDefault("service.api_key", "")
	viper.SetDefault("service.account_id", "")
	viper.SetDefault("service.timeout", 30)
	viper.SetDefault("service.max_retries", 3)
	viper.SetDefault("service.max_requests_per_second", 5)
	viper.SetDefault("service.cooldown_minutes", 30)

	viper.SetDefault("export.chunk_size", 100)
	viper.SetDefault("export.max_workers", 10)
	viper.SetDefault("export.max_consecutive_failures", 25)
	viper.SetDefault("export.checkpoint_interval", 5)

	viper.SetDefault("category.separator", " > ")
	viper.SetDefault("category.max_object_keys", 2000)
	viper.SetDefault("category.small_catalog_max", 1500)
	viper.SetDefault("category.large_catalog_min", 1500)
	viper.SetDefault("category.estimation_cap", 5000)
	viper.SetDefault("category.chunk_size", 1600)
	viper.SetDefault("category.max_traversal_depth", 20)
	viper.SetDefault("category.primary_map_cap", 650)
	viper.SetDefault("category.overflow_cache_cap", 300)
	viper.SetDefault("category.max_categories_per_product", 1900)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "storefront")
	viper.SetDefault("database.user", "storefront_user")
	viper.SetDefault("database.password", "storefront_pass")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.consumer_group", "ugc_exporter")
	viper.SetDefault("redis.min_idle_time", 120)
}
