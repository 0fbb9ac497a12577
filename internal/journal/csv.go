package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/ledger/internal/model"
)

// Header is the CSV header for exported transactions.
const Header = "id,created_at,description,debit_account_id,credit_account_id,amount,is_reversal,reversed_transaction_id,annulled"

const (
	numFields     = 9
	colID         = 0
	colCreatedAt  = 1
	colDesc       = 2
	colDebit      = 3
	colCredit     = 4
	colAmount     = 5
	colIsReversal = 6
	colReverses   = 7
	colAnnulled   = 8
)

// WriteTransactions writes transactions as CSV, header first.
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range txs {
		if err := cw.Write(MarshalTransaction(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(tx model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = strconv.FormatInt(tx.ID, 10)
	row[colCreatedAt] = tx.CreatedAt.UTC().Format(time.RFC3339)
	row[colDesc] = tx.Description
	row[colDebit] = strconv.FormatInt(tx.DebitAccountID, 10)
	row[colCredit] = strconv.FormatInt(tx.CreditAccountID, 10)
	row[colAmount] = tx.Amount.StringFixed(model.AmountPlaces)
	row[colIsReversal] = strconv.FormatBool(tx.IsReversal)
	if tx.ReversesID != nil {
		row[colReverses] = strconv.FormatInt(*tx.ReversesID, 10)
	}
	row[colAnnulled] = strconv.FormatBool(tx.Annulled)
	return row
}
