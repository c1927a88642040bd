package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/migrate"
	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/store"
)

func newMigrateCommand() *cobra.Command {
	var configPath string
	var dbPath string
	var token string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run a full migration against the configured company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath, dbPath, token, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "booksbridge.yaml", "configuration file")
	cmd.Flags().StringVar(&dbPath, "db", "booksbridge.db", "target database file, empty for in-memory")
	cmd.Flags().StringVar(&token, "token", "", "API access token (required)")
	_ = cmd.MarkFlagRequired("token")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	return cmd
}

func runMigrate(ctx context.Context, configPath, dbPath, token string, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var st store.Store
	if dbPath == "" {
		st = store.NewMemStore(cfg.Company.Name)
	} else {
		gs, err := store.OpenGorm(dbPath, cfg.Company.Name)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		st = gs
	}

	session := qbo.NewBearerSession(token, nil)
	client := qbo.NewClient(session, cfg.API.Endpoint, cfg.API.CompanyID, log,
		qbo.WithPageSize(cfg.API.PageSize),
		qbo.WithMinorVersion(cfg.API.MinorVersion))

	driver := migrate.New(cfg, st, client, log)
	status, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	migrated := 0
	for _, n := range status.Migrated {
		migrated += n
	}
	fmt.Printf("Migrated %d accounts and %d records (%d failed)\n",
		status.Accounts, migrated, status.Failed)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
