package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	Port string `mapstructure:"port" yaml:"port"`
}

// StoreConfig controls the private store protocol client. The base URL is
// overridable so tests can point the client at a local fake.
type StoreConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	GUID    string        `mapstructure:"guid" yaml:"guid"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type DownloadConfig struct {
	DataDir        string        `mapstructure:"data_dir" yaml:"data_dir"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	ChunkSize      int64         `mapstructure:"chunk_size" yaml:"chunk_size"`
	RetryLimit     int           `mapstructure:"retry_limit" yaml:"retry_limit"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	JobTimeout     time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

type ServeConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

type HistoryConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("IPAGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("store.base_url", "https://p25-buy.itunes.apple.com")
	v.SetDefault("store.timeout", "30s")
	v.SetDefault("download.data_dir", "./data")
	v.SetDefault("download.workers", 10)
	v.SetDefault("download.chunk_size", 5*1024*1024)
	v.SetDefault("download.retry_limit", 3)
	v.SetDefault("download.retry_delay", "2s")
	v.SetDefault("download.request_timeout", "60s")
	v.SetDefault("download.job_timeout", "30m")
	v.SetDefault("serve.ttl", "20m")
	v.SetDefault("serve.sweep_interval", "5m")
	v.SetDefault("history.sqlite_path", "./data/ipagrab.db")
	v.SetDefault("log.path", "ipagrab.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
}

func (c *Config) validate() error {
	if c.Download.Workers <= 0 {
		c.Download.Workers = 10
	}
	if c.Download.ChunkSize <= 0 {
		c.Download.ChunkSize = 5 * 1024 * 1024
	}
	if c.Download.RetryLimit <= 0 {
		c.Download.RetryLimit = 3
	}
	if c.Download.RetryDelay <= 0 {
		c.Download.RetryDelay = 2 * time.Second
	}
	if c.Download.RequestTimeout <= 0 {
		c.Download.RequestTimeout = 60 * time.Second
	}
	if c.Download.JobTimeout <= 0 {
		c.Download.JobTimeout = 30 * time.Minute
	}
	if c.Serve.TTL <= 0 {
		c.Serve.TTL = 20 * time.Minute
	}
	if c.Serve.SweepInterval <= 0 {
		c.Serve.SweepInterval = 5 * time.Minute
	}
	if c.Download.DataDir == "" {
		c.Download.DataDir = "./data"
	}
	if c.Store.BaseURL == "" {
		return fmt.Errorf("store base_url is required")
	}
	return nil
}
