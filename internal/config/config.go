// Package config loads agent configuration from defaults, an optional YAML
// file, and APPAGENT_-prefixed environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full agent configuration tree.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`

	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Launcher LauncherConfig `mapstructure:"launcher"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	History  HistoryConfig  `mapstructure:"history"`
}

// ScannerConfig tunes the scan cache.
type ScannerConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	MaxApps   int           `mapstructure:"max_apps"`
	CacheFile string        `mapstructure:"cache_file"`
}

// LauncherConfig tunes launch behavior.
type LauncherConfig struct {
	CheckAlreadyRunning bool          `mapstructure:"check_already_running"`
	ValidateExecutable  bool          `mapstructure:"validate_executable"`
	WaitForStartup      bool          `mapstructure:"wait_for_startup"`
	StartupGrace        time.Duration `mapstructure:"startup_grace"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	Display             string        `mapstructure:"display"`
	Debug               bool          `mapstructure:"debug"`
}

// MonitorConfig tunes the process monitor loop.
type MonitorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	ErrorInterval time.Duration `mapstructure:"error_interval"`
}

// HistoryConfig controls the optional persistent launch history.
type HistoryConfig struct {
	Persist bool   `mapstructure:"persist"`
	Path    string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8742",
		LogLevel:   "info",
		Scanner: ScannerConfig{
			TTL:       time.Hour,
			MaxApps:   1000,
			CacheFile: "apps_cache.json",
		},
		Launcher: LauncherConfig{
			CheckAlreadyRunning: true,
			ValidateExecutable:  true,
			WaitForStartup:      true,
			StartupGrace:        5 * time.Second,
			MaxRetries:          3,
			RetryBackoff:        time.Second,
		},
		Monitor: MonitorConfig{
			Enabled:       true,
			Interval:      5 * time.Second,
			ErrorInterval: 10 * time.Second,
		},
		History: HistoryConfig{
			Persist: false,
			Path:    "launch_history.db",
		},
	}
}

// Load reads configuration from path (optional, "" skips the file) layered
// over defaults and environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("APPAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("scanner.ttl", d.Scanner.TTL)
	v.SetDefault("scanner.max_apps", d.Scanner.MaxApps)
	v.SetDefault("scanner.cache_file", d.Scanner.CacheFile)
	v.SetDefault("launcher.check_already_running", d.Launcher.CheckAlreadyRunning)
	v.SetDefault("launcher.validate_executable", d.Launcher.ValidateExecutable)
	v.SetDefault("launcher.wait_for_startup", d.Launcher.WaitForStartup)
	v.SetDefault("launcher.startup_grace", d.Launcher.StartupGrace)
	v.SetDefault("launcher.max_retries", d.Launcher.MaxRetries)
	v.SetDefault("launcher.retry_backoff", d.Launcher.RetryBackoff)
	v.SetDefault("launcher.display", d.Launcher.Display)
	v.SetDefault("launcher.debug", d.Launcher.Debug)
	v.SetDefault("monitor.enabled", d.Monitor.Enabled)
	v.SetDefault("monitor.interval", d.Monitor.Interval)
	v.SetDefault("monitor.error_interval", d.Monitor.ErrorInterval)
	v.SetDefault("history.persist", d.History.Persist)
	v.SetDefault("history.path", d.History.Path)
}
