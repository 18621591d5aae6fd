package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/archive"
	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

var inspectExtract string

// artifactEntry describes one file inside an artifact.
type artifactEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact>",
	Short: "List and verify the contents of an artifact",
	Long: `Decompress every entry of <artifact> in memory, list it with its size, and
print the artifact's SHA-256. With --extract the entries are also written to a
directory on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		path := args[0]

		data, err := rt.fs.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", packerr.ErrSourceNotFound, path)
			}
			return fmt.Errorf("%w: %v", packerr.ErrIO, err)
		}

		// Unpack into memory so a corrupt entry fails here without touching disk
		mem := fsops.NewMemFS()
		memPath := "/" + filepath.Base(path)
		if err := mem.AtomicWrite(memPath, data, 0644); err != nil {
			return fmt.Errorf("%w: %v", packerr.ErrIO, err)
		}
		names, err := archive.Unpack(mem, memPath, "/contents")
		if err != nil {
			return err
		}

		entries := make([]artifactEntry, 0, len(names))
		var total int64
		for _, name := range names {
			info, err := mem.Stat(filepath.Join("/contents", filepath.FromSlash(name)))
			if err != nil {
				return fmt.Errorf("%w: %v", packerr.ErrIO, err)
			}
			entries = append(entries, artifactEntry{Name: name, Size: info.Size()})
			total += info.Size()
		}

		if inspectExtract != "" {
			if _, err := archive.Unpack(rt.fs, path, inspectExtract); err != nil {
				return err
			}
		}

		digest, err := rt.engine.Digest(path)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]interface{}{
				"path":    path,
				"sha256":  digest,
				"size":    len(data),
				"entries": entries,
			})
		}

		PrintSection("Artifact")
		PrintLabelValue("Path", path)
		PrintLabelValue("Size", fmt.Sprintf("%s (%s uncompressed)", humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(total))))
		PrintLabelValue("SHA-256", digest)
		fmt.Println()

		if len(entries) == 0 {
			PrintEmptyState("Artifact is empty")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Name, humanize.Bytes(uint64(e.Size))})
		}
		PrintTable([]string{"ENTRY", "SIZE"}, rows)

		if inspectExtract != "" {
			fmt.Println()
			PrintSuccess(fmt.Sprintf("Extracted %s to %s", PrintCount(len(entries), "file", "files"), inspectExtract))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectExtract, "extract", "", "Also extract the entries into this directory")
}
