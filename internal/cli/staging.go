package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the staging tree, keeping pack.mcmeta",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		removed, err := rt.engine.Reset()
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]interface{}{
				"pack_root": rt.cfg.PackRoot,
				"removed":   removed,
			})
		}

		if len(removed) == 0 {
			PrintEmptyState("Staging tree already empty")
			return nil
		}
		PrintSuccess(fmt.Sprintf("Removed %s from %s", PrintCount(len(removed), "entry", "entries"), rt.cfg.PackRoot))
		PrintList(removed, 1)
		return nil
	},
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Create the staging tree skeleton",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		if err := rt.engine.Scaffold(); err != nil {
			return err
		}

		skeleton := rt.engine.Layout().Skeleton()
		if jsonOutput {
			return outputJSON(map[string]interface{}{
				"pack_root":   rt.cfg.PackRoot,
				"directories": skeleton,
			})
		}

		PrintSuccess("Scaffolded " + rt.cfg.PackRoot)
		PrintList(skeleton, 1)
		return nil
	},
}
