package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/scranton-labs/auditdex/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("auditdex %s\n", version.Version)
		fmt.Printf("Git Commit: %s\n", version.Commit)
		fmt.Printf("Build Date: %s\n", version.Date)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
