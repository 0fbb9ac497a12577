package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/store"
)

func newTransactionsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Inspect posted transactions",
	}
	cmd.AddCommand(newTransactionsListCommand(opts), newTransactionsShowCommand(opts))
	return cmd
}

func newTransactionsListCommand(opts *globalOptions) *cobra.Command {
	var account string
	var limit int
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := store.TransactionFilter{Limit: limit}
			if account != "" {
				acct, err := a.accountByNumber(ctx, account)
				if err != nil {
					return err
				}
				filter.AccountID = acct.ID
			}

			txs, err := a.db.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				return journal.WriteTransactions(out, txs)
			}
			for _, tx := range txs {
				printTransaction(out, tx)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only transactions touching this account number")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of transactions (0 for all)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func newTransactionsShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transaction-id>",
		Short: "Show a transaction and its reversals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTransactionID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tx, err := a.db.Transaction(ctx, id)
			if err != nil {
				return err
			}
			debit, err := a.accounts.Get(ctx, tx.DebitAccountID)
			if err != nil {
				return err
			}
			credit, err := a.accounts.Get(ctx, tx.CreditAccountID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTransaction(out, tx)
			fmt.Fprintf(out, "  debit:  %s\n  credit: %s\n", debit, credit)

			reversals, err := a.db.Reversals(ctx, id)
			if err != nil {
				return err
			}
			for _, r := range reversals {
				fmt.Fprintf(out, "  reversed by #%d on %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
