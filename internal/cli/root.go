package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	jsonOutput   bool
	configFile   string
	baseRootFlag string
	packRootFlag string
	outputFlag   string
	prefixFlag   string
	forceFlag    bool
	logLevelFlag string

	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for packsmith.
var rootCmd = &cobra.Command{
	Use:     "packsmith",
	Version: "dev",
	Short:   "Resource pack overlay builder",
	Long: `packsmith builds resource packs that add custom item variants.

Each overlay's texture and model are merged into a staging tree next to the base
item they customise, and the base item gets a custom_model_data override that
selects the overlay. The tree is then zipped into a reproducible artifact,
digested, and optionally published.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// helpFunc prints help with commands listed under their colored group
// titles, followed by any ungrouped commands.
func helpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	fmt.Fprintf(&help, "\n  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		writeCommands(&help, groupTitleColor.Sprint(group.Title), cmd.Commands(), group.ID)
	}
	writeCommands(&help, sectionTitleColor.Sprint("Additional Commands:"), cmd.Commands(), "")

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

// writeCommands lists the visible commands of groupID under title. Nothing is
// written when the group has no visible commands.
func writeCommands(help *strings.Builder, title string, commands []*cobra.Command, groupID string) {
	var lines []string
	for _, c := range commands {
		if c.GroupID == groupID && !c.Hidden {
			lines = append(lines, fmt.Sprintf("  %-11s %s\n", c.Name(), c.Short))
		}
	}
	if len(lines) == 0 {
		return
	}
	help.WriteString(title)
	help.WriteString("\n")
	for _, l := range lines {
		help.WriteString(l)
	}
	help.WriteString("\n")
}

func init() {
	rootCmd.SetHelpFunc(helpFunc)

	// Global flags; path and behaviour flags override packsmith.toml and PACKSMITH_* variables
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./packsmith.toml)")
	rootCmd.PersistentFlags().StringVar(&baseRootFlag, "base-root", "", "Base asset library root")
	rootCmd.PersistentFlags().StringVar(&packRootFlag, "pack-root", "", "Staging tree root")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Artifact output directory")
	rootCmd.PersistentFlags().StringVar(&prefixFlag, "prefix", "", "Artifact name prefix")
	rootCmd.PersistentFlags().BoolVarP(&forceFlag, "force", "f", false, "Replace already staged overlay files")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "build-pipeline",
		Title: "Build Pipeline:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "staging-tree",
		Title: "Staging Tree:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "artifacts",
		Title: "Artifacts:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the packsmith CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Root().Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	completionCmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate the autocompletion script for packsmith for the specified shell.
See each sub-command's help for details on how to use the generated script.`,
	}
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "bash",
		Short:                 "Generate the autocompletion script for bash",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(os.Stdout)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "zsh",
		Short:                 "Generate the autocompletion script for zsh",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(os.Stdout)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "fish",
		Short:                 "Generate the autocompletion script for fish",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(os.Stdout, true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "powershell",
		Short:                 "Generate the autocompletion script for powershell",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		},
	})
	rootCmd.AddCommand(completionCmd)

	// Build Pipeline commands
	buildCmd.GroupID = "build-pipeline"
	packageCmd.GroupID = "build-pipeline"
	publishCmd.GroupID = "build-pipeline"
	historyCmd.GroupID = "build-pipeline"
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(historyCmd)

	// Staging Tree commands
	resetCmd.GroupID = "staging-tree"
	scaffoldCmd.GroupID = "staging-tree"
	importCmd.GroupID = "staging-tree"
	mergeCmd.GroupID = "staging-tree"
	registerCmd.GroupID = "staging-tree"
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(scaffoldCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(registerCmd)

	// Artifact commands
	digestCmd.GroupID = "artifacts"
	inspectCmd.GroupID = "artifacts"
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(inspectCmd)
}

// Execute executes the root command. Interrupts cancel the command's context
// so a build stops between stages.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
