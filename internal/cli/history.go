package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/state"
)

var (
	historyLimit int
	historyItem  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent builds and their custom model data",
	Long: `Show the builds recorded in the output directory, newest first.

The most recent build is shown with the custom_model_data value assigned to
each of its overlays. Use --item to list only the overlays of one item.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		history, err := rt.history().Load()
		if err != nil {
			return err
		}

		builds := recentBuilds(history, historyLimit)
		if historyItem != "" {
			for i := range builds {
				builds[i].Overlays = overlaysForItem(builds[i].Overlays, historyItem)
			}
		}

		if jsonOutput {
			return outputJSON(builds)
		}

		PrintSection("Build History")
		if len(builds) == 0 {
			PrintEmptyState("No builds recorded in " + rt.cfg.OutputDir)
			return nil
		}

		rows := make([][]string, 0, len(builds))
		for _, b := range builds {
			rows = append(rows, []string{
				humanize.Time(b.FinishedAt),
				b.Artifact,
				strconv.Itoa(len(b.Overlays)),
				humanize.Bytes(uint64(b.Size)),
			})
		}
		PrintTable([]string{"BUILT", "ARTIFACT", "OVERLAYS", "SIZE"}, rows)

		latest := builds[0]
		fmt.Println()
		PrintSubsection("Latest build " + latest.ID)
		PrintLabelValue("SHA-256", latest.Digest)
		if latest.URL != "" {
			PrintLabelValueWithColor("URL", latest.URL, linkColor)
		}
		overlays := make([]string, 0, len(latest.Overlays))
		for _, o := range latest.Overlays {
			overlays = append(overlays, fmt.Sprintf("%s/%s = %d", o.Item, o.Name, o.CustomModelData))
		}
		PrintList(overlays, 2)
		return nil
	},
}

// recentBuilds returns up to limit records, newest first. limit <= 0 returns all.
func recentBuilds(h *state.History, limit int) []state.BuildRecord {
	n := len(h.Builds)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]state.BuildRecord, 0, n)
	for i := len(h.Builds) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.Builds[i])
	}
	return out
}

func overlaysForItem(overlays []state.OverlayRecord, item string) []state.OverlayRecord {
	out := []state.OverlayRecord{}
	for _, o := range overlays {
		if o.Item == item {
			out = append(out, o)
		}
	}
	return out
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of builds to show (0 for all)")
	historyCmd.Flags().StringVar(&historyItem, "item", "", "Only show overlays of this item")
}
