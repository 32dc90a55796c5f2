package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DanSnow/skill-manager/internal/i18n"
	"github.com/DanSnow/skill-manager/internal/logging"
	"github.com/DanSnow/skill-manager/internal/outdated"
	"github.com/DanSnow/skill-manager/internal/output"
)

var outdatedFormat string

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "Show unpinned plugins whose remote has moved",
	Long: `Compare the locked commits of unpinned marketplaces and plugins with the
current tips of their remotes. Nothing is changed; run
'skill-manager install --update' to move the locks forward.

Example:
  skill-manager outdated`,
	Args: cobra.NoArgs,
	RunE: runOutdated,
}

func init() {
	outdatedCmd.Flags().StringVarP(&outdatedFormat, "output", "o", "text", "output format (text, json, yaml)")
}

func runOutdated(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outdatedFormat)
	if err != nil {
		return err
	}
	files, err := loadLayers()
	if err != nil {
		return err
	}

	layers := make([]outdated.Layer, 0, len(files))
	for _, f := range files {
		if f.Lock == nil {
			logging.Warn().Str("manifest", f.Path).Msg("no lock; run install first")
			continue
		}
		layers = append(layers, outdated.Layer{Name: f.Name, Manifest: f.Manifest, Lock: f.Lock})
	}

	r, client := newResolver()
	fmt.Fprintln(os.Stderr, i18n.T("update.checking", nil))
	result := outdated.NewChecker(client, r).CheckAll(cmd.Context(), layers...)
	for _, err := range result.Errors {
		fmt.Fprintln(os.Stderr, i18n.T("ErrorPrefix", map[string]any{"Error": err.Error()}))
	}

	items := result.Outdated()
	if items == nil {
		items = []outdated.Info{}
	}
	return output.Write(os.Stdout, format, items, func(w io.Writer) error {
		if len(items) == 0 {
			fmt.Fprintln(w, i18n.T("update.noUpdates", nil))
			return nil
		}
		fmt.Fprintln(w, i18n.T("update.available", map[string]any{"Count": len(items)}, len(items)))
		table := output.Table{Headers: []string{"Name", "Type", "Layer", "Locked", "Remote"}}
		for _, item := range items {
			table.Append(item.Name, typeLabel(item.Type), item.Layer, item.Current, item.Remote)
		}
		return table.Render(w)
	})
}

func typeLabel(t outdated.ItemType) string {
	if t == outdated.ItemMarketplace {
		return i18n.T("update.typeMarketplace", nil)
	}
	return i18n.T("update.typePlugin", nil)
}
