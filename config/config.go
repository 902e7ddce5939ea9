package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds transport configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// SandboxConfig holds isolation-layer configuration
type SandboxConfig struct {
	NsjailPath       string `mapstructure:"nsjail_path"`
	ProfileDir       string `mapstructure:"profile_dir"`
	ProfilesManifest string `mapstructure:"profiles_manifest"`
	PythonCommand    string `mapstructure:"python_command"`
	GraceSec         int    `mapstructure:"grace_sec"`
}

// ExecutorConfig holds orchestrator configuration and request bounds
type ExecutorConfig struct {
	ArtifactDir       string `mapstructure:"artifact_dir"`
	DefaultTimeoutSec int    `mapstructure:"default_timeout_sec"`
	MaxTimeoutSec     int    `mapstructure:"max_timeout_sec"`
	DefaultMemoryMB   int    `mapstructure:"default_memory_mb"`
	MaxMemoryMB       int    `mapstructure:"max_memory_mb"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("CLOUDPYEXEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("server.transport", "http")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("sandbox.nsjail_path", "nsjail")
	viper.SetDefault("sandbox.profile_dir", "./configs")
	viper.SetDefault("sandbox.profiles_manifest", "profiles.yaml")
	viper.SetDefault("sandbox.python_command", "/usr/local/bin/python3")
	viper.SetDefault("sandbox.grace_sec", 5)
	viper.SetDefault("executor.artifact_dir", "/tmp/scripts")
	viper.SetDefault("executor.default_timeout_sec", 30)
	viper.SetDefault("executor.max_timeout_sec", 300)
	viper.SetDefault("executor.default_memory_mb", 128)
	viper.SetDefault("executor.max_memory_mb", 1024)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "http" && c.Server.Transport != "mcp" {
		return fmt.Errorf("invalid server.transport: %s, must be 'http' or 'mcp'", c.Server.Transport)
	}

	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be in [1, 65535], got: %d", c.Server.HTTPPort)
	}

	if c.Sandbox.NsjailPath == "" {
		return fmt.Errorf("sandbox.nsjail_path must not be empty")
	}

	if strings.TrimSpace(c.Sandbox.PythonCommand) == "" {
		return fmt.Errorf("sandbox.python_command must not be empty")
	}

	if c.Sandbox.GraceSec < 0 {
		return fmt.Errorf("sandbox.grace_sec must not be negative, got: %d", c.Sandbox.GraceSec)
	}

	if c.Executor.ArtifactDir == "" {
		return fmt.Errorf("executor.artifact_dir must not be empty")
	}

	if c.Executor.DefaultTimeoutSec <= 0 {
		return fmt.Errorf("executor.default_timeout_sec must be positive, got: %d", c.Executor.DefaultTimeoutSec)
	}

	if c.Executor.MaxTimeoutSec < c.Executor.DefaultTimeoutSec {
		return fmt.Errorf("executor.max_timeout_sec must be >= default_timeout_sec, got: %d", c.Executor.MaxTimeoutSec)
	}

	if c.Executor.DefaultMemoryMB <= 0 {
		return fmt.Errorf("executor.default_memory_mb must be positive, got: %d", c.Executor.DefaultMemoryMB)
	}

	if c.Executor.MaxMemoryMB < c.Executor.DefaultMemoryMB {
		return fmt.Errorf("executor.max_memory_mb must be >= default_memory_mb, got: %d", c.Executor.MaxMemoryMB)
	}

	return nil
}
