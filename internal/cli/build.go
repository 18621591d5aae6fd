package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/engine"
	"github.com/danieljhkim/packsmith/internal/manifest"
)

var (
	buildDryRun  bool
	buildPublish bool
)

var buildCmd = &cobra.Command{
	Use:   "build <manifest>",
	Short: "Build a pack from an overlay manifest",
	Long: `Build resets the staging tree (keeping pack.mcmeta), merges every overlay listed
in the manifest in order, registers a custom_model_data override for each, and
packages the tree into <output>/<prefix>-<timestamp>.zip.

With --publish the artifact is uploaded to the configured publish endpoint.
With --dry-run every overlay is planned and nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		manifestPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		m, err := manifest.Load(rt.fs, manifestPath)
		if err != nil {
			return err
		}
		rt.logger.Debug("loaded manifest", "path", manifestPath, "overlays", len(m.Overlays), "items", m.Items())

		req := &engine.BuildRequest{
			Force:          rt.cfg.Force,
			DryRun:         buildDryRun,
			Publish:        buildPublish,
			ArtifactPrefix: rt.cfg.ArtifactPrefix,
		}
		for _, entry := range m.Overlays {
			req.Overlays = append(req.Overlays, engine.ItemOverlay{
				ItemID:  entry.Item,
				IsBlock: entry.Block,
				Overlay: engine.Overlay{
					Name:        entry.Name,
					TexturePath: entry.Texture,
					ModelPath:   entry.Model,
					Slot:        entry.Slot,
				},
			})
		}

		result, err := rt.engine.Build(cmd.Context(), req)
		if err != nil {
			if result != nil {
				printPlanConflicts(result)
			}
			return err
		}

		if !result.DryRun {
			rt.recordBuild(manifestPath, result)
		}

		if jsonOutput {
			return outputJSON(result)
		}

		if result.DryRun {
			PrintSection("Dry Run")
			PrintInfo(fmt.Sprintf("Would merge %s", PrintCount(len(result.Overlays), "overlay", "overlays")))
			printOverlayTable(result.Overlays)
			return nil
		}

		PrintSection("Build")
		printOverlayTable(result.Overlays)
		fmt.Println()
		PrintSuccess(fmt.Sprintf("Built %s", PrintCount(len(result.Overlays), "overlay", "overlays")))
		printArtifact(result.Artifact)
		if result.URL != "" {
			PrintLabelValueWithColor("URL", result.URL, linkColor)
		}
		return nil
	},
}

func printOverlayTable(overlays []engine.OverlayResult) {
	if len(overlays) == 0 {
		PrintEmptyState("No overlays")
		return
	}
	rows := make([][]string, 0, len(overlays))
	for _, o := range overlays {
		model := "custom"
		if o.Templated {
			model = "template"
		}
		rows = append(rows, []string{o.Item, o.Name, strconv.Itoa(o.Index), model})
	}
	PrintTable([]string{"ITEM", "OVERLAY", "CUSTOM MODEL DATA", "MODEL"}, rows)
}

func printPlanConflicts(result *engine.BuildResult) {
	var conflicts []string
	for _, plan := range result.Plans {
		for _, c := range plan.Conflicts {
			conflicts = append(conflicts, fmt.Sprintf("%s: %s", c.Path, c.Reason))
		}
	}
	if len(conflicts) == 0 {
		return
	}
	PrintSection("Conflicts Detected")
	for _, c := range conflicts {
		PrintError(c)
	}
	fmt.Println()
	PrintWarning("Overlay names must be unique across the manifest.")
}

func printArtifact(a *engine.PackageResult) {
	PrintLabelValue("Artifact", a.Path)
	PrintLabelValue("Entries", strconv.Itoa(len(a.Entries)))
	PrintLabelValue("Size", humanize.Bytes(uint64(a.Size)))
	PrintLabelValue("SHA-256", a.Digest)
}

func init() {
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Plan every overlay without writing anything")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "Publish the artifact after packaging")
}
