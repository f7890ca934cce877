package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/index"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the corpus indices from scratch",
	Long: `Rebuild the policy and email vector indices from their source files,
ignoring any persisted index cache. Embeddings are recomputed (cache
hits excepted), so this costs provider tokens.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	for corpus, ix := range map[string]*index.Index{"policy": a.policyIdx, "email": a.emailIdx} {
		if err := ix.Rebuild(ctx); err != nil {
			return err
		}
		m := ix.Manifest()
		a.logger.Info("Index rebuilt",
			zap.String("corpus", corpus),
			zap.Int("chunks", m.ChunkCount),
			zap.String("content_hash", m.ContentHash),
		)
	}
	return nil
}
