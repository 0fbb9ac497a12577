package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
)

func newPostCommand(opts *globalOptions) *cobra.Command {
	var debit, credit, amount, description string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a transaction between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.accountByNumber(ctx, debit)
			if err != nil {
				return err
			}
			c, err := a.accountByNumber(ctx, credit)
			if err != nil {
				return err
			}

			var tx model.Transaction
			err = a.retry.Do(ctx, func(ctx context.Context) error {
				var err error
				tx, err = a.journal.CreateAndPost(ctx, journal.PostParams{
					DebitAccountID:  d.ID,
					CreditAccountID: c.ID,
					Amount:          amt,
					Description:     description,
				})
				return err
			})
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Posted transaction #%d: %s debit %s / credit %s\n",
				tx.ID, tx.Amount.StringFixed(model.AmountPlaces), d, c)
			return nil
		},
	}

	cmd.Flags().StringVar(&debit, "debit", "", "debit account number (required)")
	cmd.Flags().StringVar(&credit, "credit", "", "credit account number (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, rounded half-up to 2 places (required)")
	cmd.Flags().StringVar(&description, "description", "", "free-text description")
	_ = cmd.MarkFlagRequired("debit")
	_ = cmd.MarkFlagRequired("credit")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newAnnulCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "annul <transaction-id>",
		Short: "Annul a transaction by posting its reversal",
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

			var reversal model.Transaction
			err = a.retry.Do(ctx, func(ctx context.Context) error {
				var err error
				reversal, err = a.journal.Annul(ctx, id)
				return err
			})
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Annulled transaction #%d with reversal #%d\n", id, reversal.ID)
			return nil
		},
	}
}

func parseTransactionID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid transaction id %q", s)
	}
	return id, nil
}

func printTransaction(w io.Writer, tx model.Transaction) {
	status := ""
	switch {
	case tx.Annulled:
		status = " [annulled]"
	case tx.IsReversal && tx.ReversesID != nil:
		status = fmt.Sprintf(" [reverses #%d]", *tx.ReversesID)
	}
	fmt.Fprintf(w, "#%-6d %s  %6d -> %-6d %12s  %s%s\n",
		tx.ID,
		tx.CreatedAt.Format("2006-01-02 15:04:05"),
		tx.DebitAccountID,
		tx.CreditAccountID,
		tx.Amount.StringFixed(model.AmountPlaces),
		tx.Description,
		status,
	)
}
