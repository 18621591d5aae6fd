package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/staging"
)

var registerCmd = &cobra.Command{
	Use:   "register <item> <name>",
	Short: "Append a custom_model_data override for an overlay",
	Long: `Append an override selecting item/<item>/<name> to the staged base model of
<item>. The custom_model_data value is one more than the number of overrides
already present.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		index, err := rt.engine.RegisterOverride(args[0], args[1])
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]interface{}{
				"item":              args[0],
				"model":             staging.ModelRef(args[0], args[1]),
				"custom_model_data": index,
			})
		}

		PrintSuccess(fmt.Sprintf("Registered %s as custom_model_data %d", staging.ModelRef(args[0], args[1]), index))
		return nil
	},
}
