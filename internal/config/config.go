package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Provider ProviderConfig `mapstructure:"provider"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Server   ServerConfig   `mapstructure:"server"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type SourceConfig struct {
	URL          string        `mapstructure:"url"`
	TableIndex   int           `mapstructure:"table_index"`
	SymbolColumn string        `mapstructure:"symbol_column"`
	SectorColumn string        `mapstructure:"sector_column"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	UserAgent     string `mapstructure:"user_agent"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelay    int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
	Period        string `mapstructure:"period"`
	Interval      string `mapstructure:"interval"`
}

type FetchConfig struct {
	Workers int `mapstructure:"workers"`
}

type ChartConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Format string `mapstructure:"format"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("source.url", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies")
	v.SetDefault("source.table_index", 0)
	v.SetDefault("source.symbol_column", "Symbol")
	v.SetDefault("source.sector_column", "GICS Sector")
	v.SetDefault("source.cache_ttl", "24h")
	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.user_agent", "")
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("provider.retry_count", 0)
	v.SetDefault("provider.retry_delay_sec", 1)
	v.SetDefault("provider.rate_per_second", 5)
	v.SetDefault("provider.period", "ytd")
	v.SetDefault("provider.interval", "1d")
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.ws_enabled", true)
	v.SetDefault("chart.width", 1024)
	v.SetDefault("chart.height", 512)
	v.SetDefault("chart.format", "png")
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("SP500")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// PORT is what most platforms inject
	_ = v.BindEnv("server.port", "SP500_SERVER_PORT", "PORT")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ProviderTimeout returns the HTTP timeout for provider and document requests.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSec) * time.Second
}

// ProviderRetryDelay returns the base delay between retries.
func (c *Config) ProviderRetryDelay() time.Duration {
	return time.Duration(c.Provider.RetryDelay) * time.Second
}
