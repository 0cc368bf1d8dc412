package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"kasbook/backend/internal/app"
	"kasbook/backend/internal/config"
	"kasbook/backend/internal/logger"
)

var version = "1.0.0"

// opener builds the App a command runs against.
type opener func(ctx context.Context) (*app.App, error)

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.WithComponent("app"))
}

// session holds the App between PersistentPreRunE and PersistentPostRunE.
type session struct {
	open opener
	app  *app.App
}

func newRootCmd(open opener) *cobra.Command {
	s := &session{open: open}

	root := &cobra.Command{
		Use:   "kasbook",
		Short: "Bookkeeping for a small shop: ledger, stock and debts",
		Long: `kasbook reads and writes the same book the HTTP server uses.

Storage is chosen with STORAGE_BACKEND (memory, sqlite, redis, postgres) and
the variables documented for the server; a YAML file can be given through
CONFIG_PATH.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			a, err := s.open(ctx)
			if err != nil {
				return fmt.Errorf("open book: %w", err)
			}
			s.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if s.app == nil {
				return nil
			}
			err := s.app.Close()
			s.app = nil
			return err
		},
	}

	root.AddCommand(
		newTransactionsCmd(s),
		newExportCmd(s),
		newImportCmd(s),
		newDebtsCmd(s),
		newProductsCmd(s),
		newStockCmd(s),
	)
	return root
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", raw, err)
	}
	return &t, nil
}
