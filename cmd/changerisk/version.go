package main

import (
	"fmt"
	"runtime"

	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "changerisk %s\n", Version)
		fmt.Fprintf(out, "  build time:  %s\n", BuildTime)
		fmt.Fprintf(out, "  git commit:  %s\n", GitCommit)
		fmt.Fprintf(out, "  go:          %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  tree-sitter: %t\n", content.StructuredAvailable())
	},
}
