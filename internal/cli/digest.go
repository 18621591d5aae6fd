package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest <file>",
	Short: "Print the SHA-256 of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		digest, err := rt.engine.Digest(args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]string{
				"path":   args[0],
				"sha256": digest,
			})
		}

		// sha256sum layout, so the output can be checked with sha256sum -c
		fmt.Printf("%s  %s\n", digest, args[0])
		return nil
	},
}
