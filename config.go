package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gobite server, built once at
// startup and never mutated afterward.
type Config struct {
	// Server settings
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Backlog int    `mapstructure:"backlog"`

	// Data source
	DataPath      string `mapstructure:"data_path"`
	RereadOnQuery bool   `mapstructure:"reread_on_query"`

	// Performance / admission control
	MaxWorkers    int `mapstructure:"max_workers"`
	CacheCapacity int `mapstructure:"cache_capacity"`
	BufferSize    int `mapstructure:"buffer_size"`
	MaxQueryBytes int `mapstructure:"max_query_bytes"`

	// TLS
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	TLSCert    string `mapstructure:"tls_cert"`
	TLSKey     string `mapstructure:"tls_key"`
	TLSWatch   bool   `mapstructure:"tls_watch"`

	// Rate limiting
	RateLimitEnabled  bool `mapstructure:"rate_limit_enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`

	// Deadlines
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Metrics
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns a Config with sensible defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		Host:    "0.0.0.0",
		Port:    44445,
		Backlog: 1024,

		DataPath:      "./data.txt",
		RereadOnQuery: false,

		MaxWorkers:    5000,
		CacheCapacity: 10000,
		BufferSize:    1 << 20, // 1 MiB
		MaxQueryBytes: 1 << 20, // 1 MiB

		TLSEnabled: false,
		TLSCert:    "",
		TLSKey:     "",
		TLSWatch:   false,

		RateLimitEnabled:  false,
		RequestsPerMinute: 1000,

		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		ShutdownGrace: 10 * time.Second,

		LogLevel:  "info",
		LogFormat: "text",

		MetricsEnabled: false,
		MetricsAddr:    "127.0.0.1:9090",
	}
}

// LoadConfig loads configuration from defaults, then an optional INI config
// file, then environment variables (GOBITE_ prefixed), then whatever flags
// were bound onto v by the caller. cfgFile may be empty, in which case viper
// falls back to searching its default paths for "gobite.ini".
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	config := DefaultConfig()

	v.SetConfigType("ini")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("gobite")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gobite/")
		v.AddConfigPath("$HOME/.gobite")
	}

	v.SetEnvPrefix("GOBITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !(cfgFile == "" && os.IsNotExist(err)) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("host", c.Host)
	v.SetDefault("port", c.Port)
	v.SetDefault("backlog", c.Backlog)
	v.SetDefault("data_path", c.DataPath)
	v.SetDefault("reread_on_query", c.RereadOnQuery)
	v.SetDefault("max_workers", c.MaxWorkers)
	v.SetDefault("cache_capacity", c.CacheCapacity)
	v.SetDefault("buffer_size", c.BufferSize)
	v.SetDefault("max_query_bytes", c.MaxQueryBytes)
	v.SetDefault("tls_enabled", c.TLSEnabled)
	v.SetDefault("tls_cert", c.TLSCert)
	v.SetDefault("tls_key", c.TLSKey)
	v.SetDefault("tls_watch", c.TLSWatch)
	v.SetDefault("rate_limit_enabled", c.RateLimitEnabled)
	v.SetDefault("requests_per_minute", c.RequestsPerMinute)
	v.SetDefault("read_timeout", c.ReadTimeout)
	v.SetDefault("write_timeout", c.WriteTimeout)
	v.SetDefault("shutdown_grace", c.ShutdownGrace)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
	v.SetDefault("metrics_enabled", c.MetricsEnabled)
	v.SetDefault("metrics_addr", c.MetricsAddr)
}

// Validate rejects a Config that would make the server fail fast at
// startup rather than misbehave at runtime.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Reason: fmt.Sprintf("invalid port: %d (must be 1-65535)", c.Port)}
	}
	if c.MaxWorkers < 1 {
		return &ConfigError{Reason: "max_workers must be at least 1"}
	}
	if c.CacheCapacity < 0 {
		return &ConfigError{Reason: "cache_capacity must not be negative"}
	}
	if c.MaxQueryBytes < 1 {
		return &ConfigError{Reason: "max_query_bytes must be at least 1"}
	}
	if c.BufferSize < 1 {
		return &ConfigError{Reason: "buffer_size must be at least 1"}
	}
	if c.DataPath == "" {
		return &ConfigError{Reason: "data_path must be set"}
	}
	if _, err := os.Stat(c.DataPath); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("data_path %q is not accessible: %v", c.DataPath, err)}
	}
	if c.RateLimitEnabled && c.RequestsPerMinute < 1 {
		return &ConfigError{Reason: "requests_per_minute must be at least 1 when rate limiting is enabled"}
	}
	if c.TLSEnabled {
		if c.TLSCert == "" || c.TLSKey == "" {
			return &ConfigError{Reason: "tls_cert and tls_key are required when tls_enabled is true"}
		}
		if _, err := os.Stat(c.TLSCert); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("tls_cert %q is not accessible: %v", c.TLSCert, err)}
		}
		if _, err := os.Stat(c.TLSKey); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("tls_key %q is not accessible: %v", c.TLSKey, err)}
		}
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return &ConfigError{Reason: fmt.Sprintf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))}
	}

	return nil
}

// String returns a one-line summary suitable for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("gobite config: %s:%d reread=%t workers=%d cache=%d tls=%t rate_limit=%t",
		c.Host, c.Port, c.RereadOnQuery, c.MaxWorkers, c.CacheCapacity, c.TLSEnabled, c.RateLimitEnabled)
}
