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

var removeGlobal bool

var removeCmd = &cobra.Command{
	Use:     "remove <plugin>",
	Aliases: []string{"rm"},
	Short:   "Remove a plugin declaration",
	Long: `Remove a plugin declaration from plugins.toml.

Example:
  skill-manager remove linter
  skill-manager remove superpowers --global`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeGlobal, "global", "g", false, "edit the global manifest")
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	path, err := manifestPath(removeGlobal)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewConfigError(path, i18n.T("ManifestMissing", map[string]any{"Path": path}), nil)
		}
		return errors.WrapIO("read", path, err)
	}

	out, found, err := manifest.RemovePlugin(src, name)
	if err != nil {
		return err
	}
	if !found {
		return errors.NewConfigError(path, i18n.T("NotDeclared", map[string]any{"Plugin": name}), nil)
	}
	if err := fsutil.WriteFileAtomic(path, out, 0o644); err != nil {
		return err
	}

	fmt.Println(i18n.T("RemoveSuccess", map[string]any{"Plugin": name, "Path": path}))
	return nil
}
