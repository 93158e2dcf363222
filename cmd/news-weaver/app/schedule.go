package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DanielBerns/news-weaver/internal/crontab"
	"github.com/DanielBerns/news-weaver/internal/registry"
	"github.com/DanielBerns/news-weaver/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the host scheduler entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var scheduleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize crontab entries with active sources",
	Long: `Materialize the active sources into crontab entries, replacing the
managed portion of the crontab while preserving entries written by other
tools. Run after adding, changing, or deactivating sources.`,
	RunE: runScheduleSync,
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show managed crontab entries and sync state",
	RunE:  runScheduleStatus,
}

func init() {
	scheduleCmd.PersistentFlags().String("crontab-file", "",
		"Manage entries in a file instead of the user crontab")
	scheduleCmd.AddCommand(scheduleSyncCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)
}

// newSynchronizer wires the synchronizer from configuration and flags
func newSynchronizer(cmd *cobra.Command) (*schedule.Synchronizer, func(), error) {
	ctx := cmd.Context()

	cfg, pool, err := setup(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	crontabFile, err := cmd.Flags().GetString("crontab-file")
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to get crontab-file flag: %w", err)
	}
	var system crontab.System
	if crontabFile != "" {
		system = crontab.NewFileSystem(crontabFile)
	} else {
		system = crontab.NewExecSystem()
	}

	binaryPath, err := cfg.Schedule.GetBinaryPath()
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to resolve binary path: %w", err)
	}

	sync := schedule.NewSynchronizer(
		registry.NewStore(pool),
		system,
		cfg.Schedule.GetLockPath(),
		binaryPath,
		cfg.Path(),
		schedule.ProcessEntry{
			Schedule: cfg.Schedule.GetProcessSchedule(),
			Limit:    cfg.Processing.GetBatchLimit(),
		},
		logger,
	)
	return sync, pool.Close, nil
}

func runScheduleSync(cmd *cobra.Command, _ []string) error {
	sync, cleanup, err := newSynchronizer(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := sync.Sync(cmd.Context())
	if err != nil {
		return err
	}

	if !result.Applied {
		fmt.Println("Schedule already in sync")
		return nil
	}
	fmt.Printf("Schedule updated: %d added, %d removed, %d managed entries\n",
		len(result.Added), len(result.Removed), result.Managed)
	return nil
}

func runScheduleStatus(cmd *cobra.Command, _ []string) error {
	sync, cleanup, err := newSynchronizer(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := sync.Status(cmd.Context())
	if err != nil {
		return err
	}

	for _, entry := range status.Managed {
		fmt.Printf("%-12s %-16s %s\n", entry.Owner, entry.Schedule, entry.Command)
	}
	fmt.Printf("%d managed, %d unmanaged", len(status.Managed), status.Foreign)
	if status.InSync {
		fmt.Println(" (in sync)")
	} else {
		fmt.Println(" (out of sync, run 'schedule sync')")
	}
	return nil
}
