package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DanielBerns/news-weaver/internal/extract"
	"github.com/DanielBerns/news-weaver/internal/ledger"
	"github.com/DanielBerns/news-weaver/internal/process"
	"github.com/DanielBerns/news-weaver/internal/registry"
	"github.com/DanielBerns/news-weaver/internal/sink"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a batch of pending artifacts",
	Long: `Claim a bounded batch of pending artifacts, extract their content,
and deliver the results to the configured storage service. Safe to run
concurrently with itself and with ingestion.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().Int("limit", 0, "Maximum artifacts to process (0 = configured default)")
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to get limit flag: %w", err)
	}

	cfg, pool, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	if limit <= 0 {
		limit = cfg.Processing.GetBatchLimit()
	}

	apiKey, err := cfg.Sink.GetAPIKey()
	if err != nil {
		return fmt.Errorf("failed to resolve sink API key: %w", err)
	}
	sinkClient, err := sink.NewClient(cfg.Sink.BaseURL, apiKey, cfg.Sink.GetTimeout(), cfg.Sink.GetMaxAttempts())
	if err != nil {
		return fmt.Errorf("failed to create sink client: %w", err)
	}

	worker := process.NewWorker(
		ledger.NewStore(pool),
		registry.NewStore(pool),
		extract.NewRegistry(),
		sinkClient,
		cfg.Processing.GetMaxRetries(),
		logger,
	)

	summary, err := worker.RunBatch(ctx, limit)
	if err != nil {
		return err
	}

	logger.Infow("Processing finished",
		"selected", summary.Selected,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return nil
}
