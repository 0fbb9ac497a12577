package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/buildinfo"
	"github.com/cleared-dev/ledger/internal/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	driver     string
	dsn        string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Double-entry bookkeeping ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.FileName, "path to the configuration file")
	flags.StringVar(&opts.envFile, "env-file", "", "path to a .env file (default ./.env when present)")
	flags.StringVar(&opts.driver, "driver", "", "database driver, overrides the configuration (sqlite or postgres)")
	flags.StringVar(&opts.dsn, "db", "", "database DSN, overrides the configuration")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newMigrateCommand(opts),
		newAccountsCommand(opts),
		newArticlesCommand(opts),
		newGroupsCommand(opts),
		newPostCommand(opts),
		newAnnulCommand(opts),
		newTransactionsCommand(opts),
		newImportCommand(opts),
	)

	return rootCmd
}
