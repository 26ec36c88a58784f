package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Registry RegistryConfig `mapstructure:"registry"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// RPCConfig holds settings for probing and calling endpoints.
type RPCConfig struct {
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	ScanTimeout    time.Duration `mapstructure:"scan_timeout"`
	SetTimeout     time.Duration `mapstructure:"set_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxWorkers     int           `mapstructure:"max_workers"`
	CandidateLimit int           `mapstructure:"candidate_limit"`
}

// RegistryConfig holds configuration for the public chain directory source.
type RegistryConfig struct {
	URL      string        `mapstructure:"url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// StorageConfig holds the on-disk config store paths.
type StorageConfig struct {
	Path     string `mapstructure:"path"`
	LockPath string `mapstructure:"lock_path"`
}

// ExplorerConfig holds the contract source verification services.
type ExplorerConfig struct {
	SourcifyURL  string `mapstructure:"sourcify_url"`
	EtherscanURL string `mapstructure:"etherscan_url"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "rail")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("rpc.probe_timeout", "5s")
	v.SetDefault("rpc.scan_timeout", "3s")
	v.SetDefault("rpc.set_timeout", "10s")
	v.SetDefault("rpc.request_timeout", "15s")
	v.SetDefault("rpc.max_workers", 10)
	v.SetDefault("rpc.candidate_limit", 5)
	v.SetDefault("registry.url", "https://chainid.network/chains.json")
	v.SetDefault("registry.cache_ttl", "1h")
	v.SetDefault("storage.path", "rail_config.yaml")
	v.SetDefault("storage.lock_path", "rail_config.lock")
	v.SetDefault("explorer.sourcify_url", "https://sourcify.dev/server")
	v.SetDefault("explorer.etherscan_url", "https://api.etherscan.io/v2/api")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Printf("Warning: Config file not found in %s or '.', using defaults/env vars\n", configPath)
		}
	}

	v.SetEnvPrefix("RAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// The getters floor unset durations so a zero-valued config never produces
// an already-expired context deadline.

func (c RPCConfig) GetProbeTimeout() time.Duration {
	if c.ProbeTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ProbeTimeout
}

func (c RPCConfig) GetScanTimeout() time.Duration {
	if c.ScanTimeout <= 0 {
		return 3 * time.Second
	}
	return c.ScanTimeout
}

func (c RPCConfig) GetSetTimeout() time.Duration {
	if c.SetTimeout <= 0 {
		return 10 * time.Second
	}
	return c.SetTimeout
}

func (c RPCConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return c.RequestTimeout
}

func (c RegistryConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return time.Hour
	}
	return c.CacheTTL
}
