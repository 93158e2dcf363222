package app

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DanielBerns/news-weaver/internal/registry"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage ingestion sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new source",
	Long: `Register a new source in the registry. The source becomes active
immediately; run 'schedule sync' afterwards to install its crontab entry.

Examples:
  news-weaver sources add --uri https://example.org/feed.xml --type RSS --schedule "0 * * * *" --config config.yaml
  news-weaver sources add --uri file:///srv/drop --type LOCAL --schedule "*/15 * * * *" --config config.yaml`,
	RunE: runSourcesAdd,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE:  runSourcesList,
}

var sourcesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a source",
	Long: `Deactivate a source so it is no longer scheduled. Its existing
artifacts remain in the ledger and keep being processed. Run 'schedule sync'
afterwards to remove its crontab entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesDeactivate,
}

func init() {
	sourcesAddCmd.Flags().String("uri", "", "Source URI (http(s):// or file://)")
	sourcesAddCmd.Flags().String("type", "", "Source type (RSS, WEB, or LOCAL)")
	sourcesAddCmd.Flags().String("schedule", "", "Cron expression for ingestion")
	for _, flag := range []string{"uri", "type", "schedule"} {
		if err := sourcesAddCmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}

	sourcesListCmd.Flags().Bool("active", false, "Show only active sources")

	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesDeactivateCmd)
}

func runSourcesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	uri, _ := cmd.Flags().GetString("uri")
	sourceType, _ := cmd.Flags().GetString("type")
	cronExpr, _ := cmd.Flags().GetString("schedule")

	_, pool, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	candidate := &registry.Source{
		URI:      uri,
		Type:     registry.SourceType(strings.ToUpper(sourceType)),
		Schedule: cronExpr,
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	src, err := registry.NewStore(pool).Create(ctx, candidate.URI, candidate.Type, candidate.Schedule)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	fmt.Printf("Created source %d (%s %s)\n", src.ID, src.Type, src.URI)
	return nil
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	activeOnly, err := cmd.Flags().GetBool("active")
	if err != nil {
		return fmt.Errorf("failed to get active flag: %w", err)
	}

	_, pool, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := registry.NewStore(pool)
	var srcs []registry.Source
	if activeOnly {
		srcs, err = store.ListActive(ctx)
	} else {
		srcs, err = store.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSCHEDULE\tACTIVE\tLAST SCRAPED\tURI")
	for i := range srcs {
		src := &srcs[i]
		lastScraped := "never"
		if src.LastScrapedAt != nil {
			lastScraped = src.LastScrapedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n",
			src.ID, src.Type, src.Schedule, src.Active, lastScraped, src.URI)
	}
	return w.Flush()
}

func runSourcesDeactivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", args[0], err)
	}

	_, pool, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := registry.NewStore(pool).Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate source %d: %w", id, err)
	}

	fmt.Printf("Deactivated source %d\n", id)
	return nil
}
