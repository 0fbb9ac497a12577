package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/ledger/internal/model"
)

const selectTransaction = `SELECT id, created_at, description, debit_account_id, credit_account_id,
	amount, is_reversal, reversed_transaction_id, annulled FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (model.Transaction, error) {
	var (
		t        model.Transaction
		reverses sql.NullInt64
	)
	err := r.Scan(
		&t.ID,
		&t.CreatedAt,
		&t.Description,
		&t.DebitAccountID,
		&t.CreditAccountID,
		&t.Amount,
		&t.IsReversal,
		&reverses,
		&t.Annulled,
	)
	if err != nil {
		return model.Transaction{}, err
	}
	if reverses.Valid {
		id := reverses.Int64
		t.ReversesID = &id
	}
	return t, nil
}

// Transaction returns a posted transaction by ID without locking it.
func (s *DB) Transaction(ctx context.Context, id int64) (model.Transaction, error) {
	q := s.dialect.rebind(selectTransaction + " WHERE id = ?")
	t, err := scanTransaction(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("reading transaction %d: %w", id, s.dialect.classify(err))
	}
	return t, nil
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	AccountID int64 // either side
	Limit     int
}

// ListTransactions returns transactions newest first.
func (s *DB) ListTransactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	q := selectTransaction
	var args []any
	if f.AccountID != 0 {
		q += " WHERE debit_account_id = ? OR credit_account_id = ?"
		args = append(args, f.AccountID, f.AccountID)
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", s.dialect.classify(err))
	}
	defer rows.Close()

	var result []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", s.dialect.classify(err))
	}
	return result, nil
}

// Reversals returns the reversals posted for a transaction.
func (s *DB) Reversals(ctx context.Context, id int64) ([]model.Transaction, error) {
	q := s.dialect.rebind(selectTransaction + " WHERE reversed_transaction_id = ? ORDER BY id")
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("listing reversals of %d: %w", id, s.dialect.classify(err))
	}
	defer rows.Close()

	var result []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
