// Package app provides the entry point for the news-weaver application.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/DanielBerns/news-weaver/internal/versions"
)

// logger is shared by all commands and set once in NewRootCmd
var logger *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:               "news-weaver",
	DisableAutoGenTag: true,
	Short:             "Periodic ingestion pipeline control plane",
	Long: `news-weaver schedules, ingests, and processes content from configured
sources, delivering the extracted results to a storage service.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorw("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd(log *zap.SugaredLogger) *cobra.Command {
	logger = log

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorw("Error binding config flag", "error", err)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(migrateCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			logger.Errorw("Error retrieving format flag", "error", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				logger.Errorw("Error formatting version info as JSON", "error", err)
				return
			}
			fmt.Println(string(output))
		} else {
			logger.Infow("news-weaver version",
				"version", info.Version,
				"commit", info.Commit,
				"built", info.BuildDate,
				"go", info.GoVersion,
				"platform", info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
