package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/config"
)

func newInitCommand(opts *globalOptions) *cobra.Command {
	var chartPath string
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the ledger database and seed the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if writeConfig {
				if err := writeDefaultConfig(opts); err != nil {
					return err
				}
			}

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			existing, err := a.accounts.List(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return fmt.Errorf("ledger already has %d accounts", len(existing))
			}

			chart := accounts.DefaultChart()
			if chartPath != "" {
				if chart, err = readChartFile(chartPath); err != nil {
					return err
				}
			}

			created, err := a.accounts.Seed(ctx, chart)
			if err != nil {
				return fmt.Errorf("seeding chart of accounts: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized ledger with %d accounts\n", len(created))
			for _, acct := range created {
				fmt.Fprintf(out, "  %s  %-10s %s\n", acct.Number, acct.Type, acct.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&chartPath, "chart", "", "seed accounts from a chart CSV instead of the default chart")
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "write a default configuration file if none exists")

	return cmd
}

func writeDefaultConfig(opts *globalOptions) error {
	if _, err := os.Stat(opts.configPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default()
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.Database.DSN = opts.dsn
	}
	return config.Save(opts.configPath, cfg)
}

func readChartFile(path string) ([]accounts.ChartEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart: %w", err)
	}
	defer f.Close()

	chart, err := accounts.ReadChart(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart %s: %w", path, err)
	}
	return chart, nil
}

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Database (%s) is up to date\n", a.db.Driver())
			return nil
		},
	}
}
