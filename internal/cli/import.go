package cli

import (
	"github.com/spf13/cobra"
)

var importBlock bool

var importCmd = &cobra.Command{
	Use:   "import <item>",
	Short: "Stage a base item's model",
	Long: `Copy the base model of <item> into the staging tree, once.

The model is read from models/item (or models/block with --block) of the base
library and staged as models/item/<item>.json. Importing an item that is already
staged changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		result, err := rt.engine.ImportBaseItem(args[0], importBlock)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		if result.Copied {
			PrintSuccess("Imported " + result.ItemID)
		} else {
			PrintInfo(result.ItemID + " is already staged")
		}
		PrintLabelValue("Model", result.ModelPath)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importBlock, "block", false, "Read the base model from the block folder")
}
