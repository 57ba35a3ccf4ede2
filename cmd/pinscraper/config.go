package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pinscraper/pkg/config"
	"pinscraper/pkg/ui"
)

const defaultConfigPath = ".pinscraper.yaml"

func newConfigCmd(g *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage Pinterest Scraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PINSCRAPER_*) and .env files
  - Configuration file
  - Default values (lowest priority)`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with the default values",
		Long: `Create a configuration file holding every option at its default value.

The file is created as '.pinscraper.yaml' in the current directory unless a
different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, g)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, g)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration from every source and check it.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Log file directory accessibility`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, g)
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func runConfigInit(cmd *cobra.Command, g *globalOptions) error {
	printer := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), g.quiet)

	path := g.configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		err := fmt.Errorf("configuration file already exists: %s", path)
		printer.PrintError("Refusing to overwrite", err)
		return &exitError{code: 1, err: err}
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		printer.PrintError("Failed to create configuration file", err)
		return &exitError{code: 1, err: err}
	}

	printer.PrintSuccess("Configuration file created: " + path)
	printer.PrintDim("Run 'pinscraper config validate' after editing it.")
	return nil
}

func runConfigShow(cmd *cobra.Command, g *globalOptions) error {
	printer := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), false)

	cfg, err := config.Load(g.configFile, nil)
	if err != nil {
		printer.PrintError("Failed to load configuration", err)
		return &exitError{code: 1, err: err}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		printer.PrintError("Failed to format configuration", err)
		return &exitError{code: 1, err: err}
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, g *globalOptions) error {
	printer := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), g.quiet)

	cfg, err := config.Load(g.configFile, nil)
	if err != nil {
		printer.PrintError("Configuration validation failed", err)
		return &exitError{code: 1, err: err}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			err := fmt.Errorf("log directory %s is not accessible", dir)
			printer.PrintError("Configuration validation failed", err)
			return &exitError{code: 1, err: err}
		}
	}

	if cfg.Download.RequestsPerMinute == 0 && cfg.Download.ConcurrentDownloads > 1 {
		printer.PrintWarning("Concurrent downloads without a rate limit may trigger 403/429 answers")
	}

	printer.PrintSuccess("Configuration is valid")
	printer.PrintPanel("Configuration summary", []ui.Row{
		{Label: "Base URL", Value: cfg.Pinterest.BaseURL},
		{Label: "Limit", Value: fmt.Sprint(cfg.Search.Limit)},
		{Label: "Render", Value: fmt.Sprint(cfg.Search.Render)},
		{Label: "HTTP retries", Value: fmt.Sprint(cfg.HTTP.MaxRetries)},
		{Label: "Download retries", Value: fmt.Sprint(cfg.Download.MaxRetries)},
		{Label: "Concurrent downloads", Value: fmt.Sprint(cfg.Download.ConcurrentDownloads)},
		{Label: "Rate limit", Value: fmt.Sprintf("%d requests/minute", cfg.Download.RequestsPerMinute)},
		{Label: "Output directory", Value: cfg.Output.Directory},
		{Label: "Log level", Value: cfg.Logging.Level},
	})
	return nil
}
