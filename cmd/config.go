package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/config"
	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/output"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect skill-manager configuration",
	Long: `Inspect skill-manager configuration settings.

Settings are read from ~/.config/skill-manager/config.toml, .env files and
SKILL_MANAGER_* environment variables.

Example:
  skill-manager config show
  SKILL_MANAGER_CACHE_DIR=/tmp/cache skill-manager config show`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVarP(&configFormat, "output", "o", "text", "output format (text, json, yaml)")
	configCmd.AddCommand(configShowCmd)
}

type configView struct {
	config.Config `yaml:",inline"`
	Paths          configPaths `json:"paths" yaml:"paths"`
}

type configPaths struct {
	GlobalManifest    string `json:"globalManifest" yaml:"globalManifest"`
	ProjectManifest   string `json:"projectManifest" yaml:"projectManifest"`
	InstalledPlugins  string `json:"installedPlugins" yaml:"installedPlugins"`
	KnownMarketplaces string `json:"knownMarketplaces" yaml:"knownMarketplaces"`
	Settings          string `json:"settings" yaml:"settings"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(configFormat)
	if err != nil {
		return err
	}
	project, err := manifestPath(false)
	if err != nil {
		return err
	}

	cfg := appConfig
	view := configView{
		Config: *cfg,
		Paths: configPaths{
			GlobalManifest:    manifest.GlobalPath(),
			ProjectManifest:   project,
			InstalledPlugins:  cfg.InstalledPluginsPath(),
			KnownMarketplaces: cfg.KnownMarketplacesPath(),
			Settings:          cfg.SettingsPath(),
		},
	}

	return output.Write(os.Stdout, format, view, func(w io.Writer) error {
		fmt.Fprintln(w, "Configuration:")
		fmt.Fprintln(w, "----------------------------------------")
		if cfg.ConfigFile != "" {
			fmt.Fprintf(w, "  file: %s\n", cfg.ConfigFile)
		}
		fmt.Fprintf(w, "  cache_dir: %s\n", cfg.CacheDir)
		fmt.Fprintf(w, "  claude_dir: %s\n", cfg.ClaudeDir)
		fmt.Fprintf(w, "  locale: %s\n", cfg.Locale)
		fmt.Fprintf(w, "  log.level: %s\n", cfg.Log.Level)
		fmt.Fprintf(w, "  log.format: %s\n", cfg.Log.Format)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Locale:")
		if cfg.Locale == "auto" {
			fmt.Fprintln(w, "  auto: System locale is auto-detected")
		} else {
			fmt.Fprintf(w, "  %s: Using fixed locale\n", cfg.Locale)
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, i18n.T("ConfigPathsHeader", nil))
		fmt.Fprintf(w, "  global manifest:    %s\n", view.Paths.GlobalManifest)
		fmt.Fprintf(w, "  project manifest:   %s\n", view.Paths.ProjectManifest)
		fmt.Fprintf(w, "  installed plugins:  %s\n", view.Paths.InstalledPlugins)
		fmt.Fprintf(w, "  known marketplaces: %s\n", view.Paths.KnownMarketplaces)
		fmt.Fprintf(w, "  settings:           %s\n", view.Paths.Settings)
		return nil
	})
}
