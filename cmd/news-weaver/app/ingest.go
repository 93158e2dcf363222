package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DanielBerns/news-weaver/internal/fetch"
	"github.com/DanielBerns/news-weaver/internal/ingest"
	"github.com/DanielBerns/news-weaver/internal/ledger"
	"github.com/DanielBerns/news-weaver/internal/registry"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch one source and record new artifacts",
	Long: `Fetch the content of a single source, write new payloads to local
storage, and record them in the artifact ledger. Intended to be invoked by the
host scheduler; one invocation handles one source.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int64("source-id", 0, "ID of the source to ingest")
	if err := ingestCmd.MarkFlagRequired("source-id"); err != nil {
		panic(err)
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sourceID, err := cmd.Flags().GetInt64("source-id")
	if err != nil {
		return fmt.Errorf("failed to get source-id flag: %w", err)
	}

	cfg, pool, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	worker := ingest.NewWorker(
		registry.NewStore(pool),
		ledger.NewStore(pool),
		fetch.NewFactory(cfg.Fetch.GetTimeout(), cfg.Fetch.UserAgent),
		cfg.Storage.DataDir,
		logger,
	)

	outcome, err := worker.Run(ctx, sourceID)
	if err != nil {
		return err
	}

	logger.Infow("Ingestion finished",
		"source_id", sourceID,
		"disposition", outcome.Disposition,
		"artifacts", len(outcome.ArtifactIDs))
	return nil
}
