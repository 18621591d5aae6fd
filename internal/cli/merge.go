package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/engine"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

var (
	mergeTexture string
	mergeModel   string
	mergeSlot    string
	mergeBlock   bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <item> <name>",
	Short: "Stage an overlay's texture and model",
	Long: `Stage the overlay <name> for <item>.

The texture is copied to textures/item/<name>.png. The model (--model, or the
base model of <item> when omitted) is written to models/item/<item>/<name>.json
with its first texture slot (or --slot) pointing at item/<name>.

Staged files are only replaced with --force. A failed merge leaves no partial files.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		overlay := engine.Overlay{
			Name:        args[1],
			TexturePath: mergeTexture,
			ModelPath:   mergeModel,
			Slot:        mergeSlot,
		}
		result, err := rt.engine.MergeOverlay(args[0], mergeBlock, overlay, rt.cfg.Force)
		if err != nil {
			if errors.Is(err, packerr.ErrOverwrite) && result != nil {
				PrintSection("Conflicts Detected")
				for _, conflict := range result.Plan.Conflicts {
					PrintError(fmt.Sprintf("%s: %s", conflict.Path, conflict.Reason))
				}
				fmt.Println()
				PrintWarning("Use --force to replace staged files.")
			}
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		PrintSuccess(fmt.Sprintf("Merged %s into %s", overlay.Name, args[0]))
		PrintLabelValue("Texture", result.TexturePath)
		PrintLabelValue("Model", result.ModelPath)
		PrintLabelValue("Slot", result.Slot)
		if result.Templated {
			PrintLabelValue("Source", "base model template")
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeTexture, "texture", "t", "", "Overlay texture (png)")
	mergeCmd.Flags().StringVarP(&mergeModel, "model", "m", "", "Overlay model (json); defaults to the base model")
	mergeCmd.Flags().StringVar(&mergeSlot, "slot", "", "Texture slot to redirect (default: first slot)")
	mergeCmd.Flags().BoolVar(&mergeBlock, "block", false, "Use the block folder for the base model template")
	_ = mergeCmd.MarkFlagRequired("texture")
}
