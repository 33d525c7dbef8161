package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cachescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cachescan",
		Short: "CDN cache audit for a catalog of static assets",
		Long: `cachescan checks whether the assets listed in a metadata catalog are served
from the CDN cache rather than from origin.

It derives every file variant from the catalog (original files and, for PDFs,
their JPEG and WebP previews), probes each one, and reports the CDN cache verdict
per file together with the fleet-wide cache ratio and mean cache age.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
