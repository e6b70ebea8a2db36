// Package config handles configuration loading for loom.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for loom.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Models    ModelsConfig    `mapstructure:"models"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Engine    EngineConfig    `mapstructure:"engine"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds API transport settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes calls through AWS Bedrock.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ModelsConfig maps complexity tiers and the judge to model names.
type ModelsConfig struct {
	Quick    string `mapstructure:"quick"`
	Thorough string `mapstructure:"thorough"`
	Deep     string `mapstructure:"deep"`
	Judge    string `mapstructure:"judge"`
}

// DefaultsConfig holds per-node defaults applied when a plan omits them.
type DefaultsConfig struct {
	// MaxRetries is the retry budget for nodes that set none.
	MaxRetries int `mapstructure:"max_retries"`
	// Validation toggles judge validation for nodes that set none.
	Validation bool `mapstructure:"validation"`
}

// EngineConfig holds scheduler settings.
type EngineConfig struct {
	// MaxParallel bounds concurrent node executions per round.
	// Zero means unbounded.
	MaxParallel int `mapstructure:"max_parallel"`
	// Workspace is the directory tool calls operate in.
	Workspace string `mapstructure:"workspace"`
	// SignalDir is the directory watched for pause signals.
	// Empty disables pausing.
	SignalDir string `mapstructure:"signal_dir"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration with the following precedence, highest first:
// environment variables (ANTHROPIC_API_KEY), project config (.loom.yaml
// in the current directory or a parent), user config
// (~/.config/loom/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("models.quick", cfg.Models.Quick)
	v.Set("models.thorough", cfg.Models.Thorough)
	v.Set("models.deep", cfg.Models.Deep)
	v.Set("models.judge", cfg.Models.Judge)
	v.Set("defaults.max_retries", cfg.Defaults.MaxRetries)
	v.Set("defaults.validation", cfg.Defaults.Validation)
	v.Set("engine.max_parallel", cfg.Engine.MaxParallel)
	v.Set("engine.workspace", cfg.Engine.Workspace)
	v.Set("engine.signal_dir", cfg.Engine.SignalDir)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("models.quick", "claude-3-5-haiku-20241022")
	v.SetDefault("models.thorough", "claude-sonnet-4-20250514")
	v.SetDefault("models.deep", "claude-opus-4-1-20250805")
	v.SetDefault("models.judge", "claude-3-5-haiku-20241022")

	v.SetDefault("defaults.max_retries", 2)
	v.SetDefault("defaults.validation", true)

	v.SetDefault("engine.max_parallel", 0)
	v.SetDefault("engine.workspace", ".")
	v.SetDefault("engine.signal_dir", "")

	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for loom.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "loom")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "loom")
	}
	return filepath.Join(home, ".config", "loom")
}

// findProjectConfig searches for .loom.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".loom.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			Quick:    "claude-3-5-haiku-20241022",
			Thorough: "claude-sonnet-4-20250514",
			Deep:     "claude-opus-4-1-20250805",
			Judge:    "claude-3-5-haiku-20241022",
		},
		Defaults: DefaultsConfig{
			MaxRetries: 2,
			Validation: true,
		},
		Engine: EngineConfig{
			Workspace: ".",
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
