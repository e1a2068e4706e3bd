package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbstudio/storyboard-agent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "Local storyboard authoring agent",
	Long: `storyboard keeps a single storyboard project on this machine and serves it
to the editor over a loopback HTTP API.

Run without a subcommand to start the agent.`,
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, exportCmd, importCmd, storageCmd, resetCmd, tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
