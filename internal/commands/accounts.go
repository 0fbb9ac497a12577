package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/model"
)

func newAccountsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(opts),
		newAccountsCreateCommand(opts),
		newAccountsDeleteCommand(opts),
		newAccountsExportCommand(opts),
	)
	return cmd
}

func newAccountsListCommand(opts *globalOptions) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var accts []model.Account
			if typ == "" {
				accts, err = a.accounts.List(ctx)
			} else {
				var t model.AccountType
				if t, err = model.ParseAccountType(typ); err != nil {
					return err
				}
				accts, err = a.accounts.ByType(ctx, t)
			}
			if err != nil {
				return err
			}

			printAccounts(cmd.OutOrStdout(), accts)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "only list accounts of this type (asset, liability, mixed)")
	return cmd
}

func printAccounts(w io.Writer, accts []model.Account) {
	fmt.Fprintf(w, "%-10s  %-9s  %15s  %s\n", "NUMBER", "TYPE", "BALANCE", "NAME")
	for _, acct := range accts {
		fmt.Fprintf(w, "%-10s  %-9s  %15s  %s\n", acct.Number, acct.Type, acct.Balance.StringFixed(model.AmountPlaces), acct.Name)
	}
}

func newAccountsCreateCommand(opts *globalOptions) *cobra.Command {
	var name, typ string
	var groupID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with a generated number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseAccountType(typ)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.accounts.CreateAccount(ctx, accounts.NewAccount{Name: name, Type: t, GroupID: groupID})
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s\n", acct)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	cmd.Flags().StringVar(&typ, "type", "", "account type: asset, liability or mixed (required)")
	cmd.Flags().Int64Var(&groupID, "group", 0, "balance group ID (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func newAccountsDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Delete an account that no transaction references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.accountByNumber(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.accounts.Delete(ctx, acct.ID); err != nil {
				return fmt.Errorf("deleting account %s: %w", acct.Number, describe(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", acct)
			return nil
		},
	}
}

func newAccountsExportCommand(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.accounts.Export(ctx)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return accounts.WriteChart(cmd.OutOrStdout(), rows)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := accounts.WriteChart(f, rows); err != nil {
				f.Close()
				return fmt.Errorf("writing %s: %w", output, err)
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newArticlesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Manage balance articles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a balance article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			art, err := a.accounts.CreateArticle(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created article #%d %s\n", art.ID, art.Name)
			return nil
		},
	})
	return cmd
}

func newGroupsCommand(opts *globalOptions) *cobra.Command {
	var articleID int64

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a balance group under an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.accounts.CreateGroup(ctx, articleID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group #%d %s\n", g.ID, g.Name)
			return nil
		},
	}
	create.Flags().Int64Var(&articleID, "article", 0, "balance article ID (required)")
	_ = create.MarkFlagRequired("article")

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage balance groups",
	}
	cmd.AddCommand(create)
	return cmd
}
