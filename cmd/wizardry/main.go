package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

// Flags shared by every command
var (
	configPath string
	debug      bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "wizardry",
		Short: "Wizardry - campaign canvas layout editor",
		Long: `Wizardry edits campaign canvases: positioned text, image and shape
elements with grouping, snapping guides, undo history and device-aware
zoom. Layouts can be edited in the terminal, over a live WebSocket
session, or rendered to PNG.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "wizardry.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log scheduler, drag and snap internals")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug {
			enableDebugLogging()
		}
	}

	// Add commands
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newEditCommand())
	rootCmd.AddCommand(newLayersCommand())
	rootCmd.AddCommand(newSnapCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newCampaignsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
