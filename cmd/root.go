// Package cmd implements the lecturecap command line.
package cmd

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lecturecap",
	Short: "Find lecture recordings on a page and pull their transcripts",
	Long: "lecturecap detects Panopto and Echo360 players embedded in course pages, " +
		"resolves Echo360 sections to their videos, and extracts transcripts through the background service.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			pterm.EnableDebugMessages()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(extensionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}
