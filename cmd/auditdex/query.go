package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scranton-labs/auditdex/internal/usecase/pipeline"
)

var queryFlags struct {
	jsonOut  bool
	progress bool
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Run one audit query from the command line",
	Long: `Run one audit query through the full pipeline and print the answer.

Examples:
  auditdex query "Did anyone exceed the $500 purchase limit?"
  auditdex query --json "Is Ryan Howard involved in suspicious spending?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().BoolVar(&queryFlags.jsonOut, "json", false, "print the full result state as JSON")
	queryCmd.Flags().BoolVar(&queryFlags.progress, "progress", true, "print stage progress to stderr")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var progress pipeline.ProgressFunc
	if queryFlags.progress {
		progress = func(ev pipeline.ProgressEvent) {
			switch ev.Kind {
			case pipeline.StageStarted:
				fmt.Fprintf(os.Stderr, "-> %s\n", ev.Stage)
			case pipeline.StageFailed:
				fmt.Fprintf(os.Stderr, "!! %s: %s\n", ev.Stage, ev.Err)
			}
		}
	}

	question := strings.Join(args, " ")
	st, err := a.pipeline.Run(ctx, question, progress)
	if err != nil {
		return err
	}

	if queryFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Println(st.FinalAnswer)
	if st.EvidenceSummary != "" {
		fmt.Println()
		fmt.Println(st.EvidenceSummary)
	}
	return nil
}
