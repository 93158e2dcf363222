package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/DanielBerns/news-weaver/internal/config"
	"github.com/DanielBerns/news-weaver/internal/db"
)

// loadConfig resolves the --config flag and loads the configuration
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setup loads configuration and opens the database pool shared by the
// data-touching commands.
func setup(ctx context.Context, cmd *cobra.Command) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database == nil {
		return nil, nil, fmt.Errorf("database configuration is required")
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, pool, nil
}
