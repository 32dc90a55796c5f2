package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/DanSnow/skill-manager/internal/config"
	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/logging"
)

var (
	verbose    bool
	configFile string

	// appConfig is loaded before every command runs.
	appConfig *config.Config
	localeFS  fs.FS

	rootCmd = &cobra.Command{
		Use:           "skill-manager",
		Short:         "Declarative plugin manager for Claude Code",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `skill-manager installs Claude Code plugins declared in plugins.toml.

The global manifest lives in ~/.config/skill-manager/plugins.toml and a
project may add .claude/plugins.toml. Resolved versions are pinned in a
plugins.lock next to each manifest.

Commands:
  init      Create a plugins.toml
  add       Declare a plugin
  remove    Remove a plugin declaration
  install   Resolve, lock and install declared plugins
  list      Show declared plugins and their locked versions
  outdated  Show unpinned plugins with newer commits
  search    Search the declared marketplaces
  config    Show the effective configuration`,
		PersistentPreRunE: setup,
	}
)

func setup(cmd *cobra.Command, args []string) error {
	opts := config.DefaultOptions()
	opts.ConfigFile = configFile
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logCfg := logging.ConfigFromEnv()
	if os.Getenv("LOG_LEVEL") == "" || verbose {
		logCfg.Level = level
	}
	if os.Getenv("LOG_FORMAT") == "" {
		logCfg.Format = cfg.Log.Format
	}
	logging.Configure(logCfg)

	if localeFS != nil {
		if err := i18n.Init(localeFS, i18n.ResolveLocale(cfg.Locale)); err != nil {
			logging.Warn().Err(err).Msg("failed to load translations")
		}
	}

	appConfig = cfg
	cmd.SetContext(logging.WithLogger(cmd.Context(), logging.Default()))
	return nil
}

// Execute runs the root command with translations from locales
func Execute(locales fs.FS) {
	localeFS = locales

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	switch {
	case errors.IsConflictAbort(err):
		fmt.Fprintln(os.Stderr, i18n.T("InstallAborted", nil))
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, i18n.T("Interrupted", nil))
	default:
		fmt.Fprintln(os.Stderr, i18n.T("ErrorPrefix", map[string]any{"Error": err.Error()}))
	}
}

// normalizeFlag accepts underscores in flag names, e.g. --prefer_global.
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/skill-manager/config.toml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(outdatedCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(configCmd)
}
