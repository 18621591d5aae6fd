package cli

import (
	"github.com/spf13/cobra"
)

var publishDigest string

var publishCmd = &cobra.Command{
	Use:   "publish <file>",
	Short: "Upload an artifact to the publish endpoint",
	Long: `Upload <file> to publish.endpoint and print the returned link.

The artifact's SHA-256 is sent with the upload; it is computed unless --digest
is given. Transient failures are retried up to publish.max_retries times.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}

		url, err := rt.engine.Publish(cmd.Context(), args[0], publishDigest)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]string{
				"path": args[0],
				"url":  url,
			})
		}

		PrintSuccess("Published " + args[0])
		PrintLabelValueWithColor("URL", url, linkColor)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishDigest, "digest", "", "Known SHA-256 of the artifact")
}
