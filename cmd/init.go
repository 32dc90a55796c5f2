package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/fsutil"
	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/manifest"
)

var initGlobal bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a plugins.toml",
	Long: `Create a plugins.toml manifest.

Without --global the manifest is created in .claude/ of the current directory.

Example:
  skill-manager init --global
  skill-manager init`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initGlobal, "global", "g", false, "create the global manifest")
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := manifestPath(initGlobal)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return errors.NewConfigError(path, i18n.T("AlreadyExists", map[string]any{"Name": path}), nil)
	}

	if err := fsutil.WriteFileAtomic(path, []byte(manifest.Template), 0o644); err != nil {
		return err
	}
	fmt.Println(i18n.T("InitSuccess", map[string]any{"Path": path}))
	return nil
}
