package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/conflict"
	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/git"
	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/installer"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/resolver"
	"github.com/DanSnow/skill-manager/internal/tui"
)

var (
	installUpdate        bool
	installPreferGlobal  bool
	installPreferProject bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the plugins declared in plugins.toml",
	Long: `Resolve, lock and install the plugins of the global and project manifests.

A lock whose hash matches its manifest is reused. When both manifests pin the
same plugin differently you are asked which pin to keep, unless
--prefer-global or --prefer-project decides for every conflict.

Example:
  skill-manager install
  skill-manager install --update
  skill-manager install --prefer-project`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installUpdate, "update", "u", false, "re-resolve even when the lock is current")
	installCmd.Flags().BoolVar(&installPreferGlobal, "prefer-global", false, "keep the global pin on conflicts")
	installCmd.Flags().BoolVar(&installPreferProject, "prefer-project", false, "adopt the project pin on conflicts")
	installCmd.MarkFlagsMutuallyExclusive("prefer-global", "prefer-project")
}

func conflictPolicy() conflict.Policy {
	switch {
	case installPreferGlobal:
		return conflict.PreferBase
	case installPreferProject:
		return conflict.PreferOther
	default:
		return conflict.Interactive
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.WrapIO("getwd", ".", err)
	}

	fmt.Println(i18n.T("Resolving", nil))
	in := installer.New(appConfig, git.NewClient())
	report, err := in.Run(cmd.Context(), installer.Options{
		GlobalManifest: manifest.GlobalPath(),
		ProjectDir:     cwd,
		Update:         installUpdate,
		Decider:        tui.Decider(conflictPolicy()),
	})
	if err != nil {
		return err
	}

	for _, r := range report.Plan.Resolutions {
		fmt.Println(i18n.T("ConflictDecided", map[string]any{
			"Plugin":   r.Key,
			"Decision": r.Decision.String(),
			"Pin":      r.Other.Pin.String(),
		}))
	}

	total := 0
	for _, l := range report.Layers {
		if l.Reused {
			fmt.Println(i18n.T("UsingLock", map[string]any{"Path": l.Lock}))
		} else {
			fmt.Println(i18n.T("WroteLock", map[string]any{"Path": l.Lock}))
		}
		for _, p := range l.Installed {
			fmt.Printf("  %s %s (%s, %s)\n", p.Key, p.Version, resolver.ShortCommit(p.Commit), p.Scope.Kind)
		}
		total += len(l.Installed)
	}

	fmt.Println()
	fmt.Println(i18n.T("InstallSuccess", map[string]any{"Count": total}, total))
	return nil
}
