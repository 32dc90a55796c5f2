package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/errors"
	"github.com/DanSnow/skill-manager/internal/fsutil"
	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/manifest"
	"github.com/DanSnow/skill-manager/internal/search"
)

var (
	addMarketplace string
	addTag         string
	addCommit      string
	addGlobal      bool
)

var addCmd = &cobra.Command{
	Use:   "add <plugin>",
	Short: "Declare a plugin in plugins.toml",
	Long: `Declare a plugin in plugins.toml.

Without --marketplace the listings of the declared marketplaces are searched
for the plugin. Run 'skill-manager install' afterwards to install it.

Example:
  skill-manager add superpowers
  skill-manager add linter --marketplace company --tag v2.0.0 --global`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addMarketplace, "marketplace", "m", "", "marketplace providing the plugin")
	addCmd.Flags().StringVar(&addTag, "tag", "", "pin to a tag")
	addCmd.Flags().StringVar(&addCommit, "commit", "", "pin to a commit")
	addCmd.Flags().BoolVarP(&addGlobal, "global", "g", false, "edit the global manifest")
	addCmd.MarkFlagsMutuallyExclusive("tag", "commit")
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	path, err := manifestPath(addGlobal)
	if err != nil {
		return err
	}
	m, err := loadManifest(path)
	if err != nil {
		return err
	}

	mkt := addMarketplace
	if mkt == "" {
		if mkt, err = findMarketplace(cmd, m, name); err != nil {
			return err
		}
	} else if _, ok := m.Marketplaces[mkt]; !ok {
		return errors.NewConfigError(path, i18n.T("MarketplaceNotDeclared", map[string]any{"Name": mkt}), nil)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}
	out, err := manifest.SetPlugin(src, name, manifest.PluginEntry{Marketplace: mkt, Tag: addTag, Commit: addCommit})
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, out, 0o644); err != nil {
		return err
	}

	fmt.Println(i18n.T("AddSuccess", map[string]any{"Plugin": name, "Marketplace": mkt, "Path": path}))
	return nil
}

// findMarketplace searches the declared marketplaces for a plugin named name.
func findMarketplace(cmd *cobra.Command, m *manifest.Manifest, name string) (string, error) {
	if len(m.Marketplaces) == 0 {
		return "", errors.NewConfigError(m.Path, i18n.T("NoMarketplaces", nil), nil)
	}

	listings := loadListings(cmd.Context(), m)
	exact := search.Exact(listings, name)
	switch len(exact) {
	case 1:
		return exact[0].Marketplace, nil
	case 0:
		msg := i18n.T("PluginNotFound", map[string]any{"Plugin": name})
		if suggestions := search.Keys(search.Fuzzy(listings, name), 5); len(suggestions) > 0 {
			msg += " " + i18n.T("DidYouMean", map[string]any{"Suggestions": strings.Join(suggestions, ", ")})
		}
		return "", errors.NewConfigError(m.Path, msg, nil)
	default:
		return "", errors.NewConfigError(m.Path, i18n.T("PluginAmbiguous", map[string]any{
			"Plugin":  name,
			"Choices": strings.Join(search.Keys(exact, 0), ", "),
		}), nil)
	}
}
