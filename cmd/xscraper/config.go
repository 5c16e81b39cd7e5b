package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"xscraper/internal/runner"
	"xscraper/pkg/config"
	"xscraper/pkg/extract"
	"xscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (XSCRAPER_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write every option with its default value to a YAML file.

The file is created as 'xscraper.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax and value ranges
  - Selector patterns and date formats
  - The batch schedule
  - Output and log paths`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "xscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Import a session with 'xscraper session import cookies.json'")
	fmt.Println("2. Run 'xscraper config validate' to check the configuration")
	fmt.Println("3. Start collecting with 'xscraper scrape <identity>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, flagMap(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, flagMap(cmd))
	if err != nil {
		return err
	}

	var warnings, problems []string

	// Selector patterns and vocabulary only fail when compiled
	if _, err := extract.New(cfg.Extraction, cfg.Timeouts); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Batch.Schedule != "" {
		if err := runner.ValidateSchedule(cfg.Batch.Schedule); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if cfg.Session.Backend == "file" {
		if _, err := os.Stat(cfg.Session.Path); err != nil {
			warnings = append(warnings, fmt.Sprintf("Session file %s not found", cfg.Session.Path))
		}
	}
	if cfg.Collection.MaxPosts == 0 && cfg.Collection.MaxReposts == 0 &&
		cfg.Collection.MaxFollowers == 0 && cfg.Collection.MaxFollowing == 0 {
		warnings = append(warnings, "Every collection limit is zero; sessions will only read the profile header")
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:", "")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Session backend: %s\n", cfg.Session.Backend)
	fmt.Printf("  Limits: %d posts, %d reposts, %d followers, %d following\n",
		cfg.Collection.MaxPosts, cfg.Collection.MaxReposts, cfg.Collection.MaxFollowers, cfg.Collection.MaxFollowing)
	fmt.Printf("  Batch concurrency: %d\n", cfg.Batch.Concurrency)
	fmt.Printf("  Rate limit: %d sessions/minute\n", cfg.RateLimit.SessionsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
