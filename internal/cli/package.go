package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/engine"
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Zip and digest the current staging tree",
	Long: `Package the staging tree as it is into <output>/<prefix>-<timestamp>.zip and
print its SHA-256. Unlike build, nothing is reset or merged first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		result, err := rt.engine.Package(cmd.Context(), &engine.PackageRequest{
			ArtifactPrefix: rt.cfg.ArtifactPrefix,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		PrintSuccess("Packaged " + rt.cfg.PackRoot)
		printArtifact(result)
		return nil
	},
}
