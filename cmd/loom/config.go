package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomwork/loom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View or modify configuration",
	Long: `With no arguments, config shows every setting. With a key it shows
one value; with a key and a value it updates the user config file.

Keys use dotted paths, for example models.thorough or engine.max_parallel.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// configKeys lists every settable key in display order.
var configKeys = []string{
	"anthropic.api_key",
	"anthropic.use_bedrock",
	"anthropic.aws_region",
	"anthropic.aws_profile",
	"models.quick",
	"models.thorough",
	"models.deep",
	"models.judge",
	"defaults.max_retries",
	"defaults.validation",
	"engine.max_parallel",
	"engine.workspace",
	"engine.signal_dir",
	"tui.refresh_rate",
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		displayAllConfig(cfg)
		return nil
	case 1:
		value, err := configValue(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	default:
		return setConfigKey(cfg, args[0], args[1])
	}
}

func displayAllConfig(cfg *config.Config) {
	dimColor.Printf("user config: %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		dimColor.Printf("project config: %s\n", project)
	}
	fmt.Println()

	for _, key := range configKeys {
		value, _ := configValue(cfg, key)
		fmt.Printf("  %-22s %s\n", key, value)
	}
}

func configValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		return maskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "models.quick":
		return cfg.Models.Quick, nil
	case "models.thorough":
		return cfg.Models.Thorough, nil
	case "models.deep":
		return cfg.Models.Deep, nil
	case "models.judge":
		return cfg.Models.Judge, nil
	case "defaults.max_retries":
		return strconv.Itoa(cfg.Defaults.MaxRetries), nil
	case "defaults.validation":
		return strconv.FormatBool(cfg.Defaults.Validation), nil
	case "engine.max_parallel":
		return strconv.Itoa(cfg.Engine.MaxParallel), nil
	case "engine.workspace":
		return cfg.Engine.Workspace, nil
	case "engine.signal_dir":
		return cfg.Engine.SignalDir, nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false", key)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "models.quick":
		cfg.Models.Quick = value
	case "models.thorough":
		cfg.Models.Thorough = value
	case "models.deep":
		cfg.Models.Deep = value
	case "models.judge":
		cfg.Models.Judge = value
	case "defaults.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s expects a non-negative integer", key)
		}
		cfg.Defaults.MaxRetries = n
	case "defaults.validation":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false", key)
		}
		cfg.Defaults.Validation = b
	case "engine.max_parallel":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s expects a non-negative integer", key)
		}
		cfg.Engine.MaxParallel = n
	case "engine.workspace":
		cfg.Engine.Workspace = value
	case "engine.signal_dir":
		cfg.Engine.SignalDir = value
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s expects a duration such as 100ms", key)
		}
		cfg.TUI.RefreshRate = d
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	shown, _ := configValue(cfg, key)
	fmt.Printf("%s = %s\n", key, shown)
	dimColor.Printf("saved to %s\n", config.GetUserConfigPath())
	return nil
}

// maskAPIKey hides all but the trailing characters of a key.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
