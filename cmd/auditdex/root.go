package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scranton-labs/auditdex/internal/config"
	"github.com/scranton-labs/auditdex/internal/version"
)

var rootFlags struct {
	env      string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "auditdex",
	Short: "Evidence-backed audit Q&A over policy, email and ledger corpora",
	Long: `Auditdex answers compliance questions about corporate spending.

Each query runs through an orchestration pipeline: classification,
policy retrieval, email and transaction retrieval, deterministic rule
evaluation, fraud correlation and narrative synthesis. Every answer is
backed by the evidence the pipeline collected.`,
	Version: version.Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.env, "env", config.GetEnv(),
		"config environment name (local, dev, prod)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "",
		"override log level (debug, info, warn, error)")
}
