// Package store persists the chart of accounts and posted transactions in
// a relational database (SQLite or PostgreSQL) and provides the unit of
// work the journal posts through.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/model"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
)

// Config describes how to reach the database.
type Config struct {
	Driver       string // "sqlite" or "postgres"
	DSN          string // file path for SQLite, connection URL for PostgreSQL
	MaxOpenConns int
	BusyTimeout  time.Duration // SQLite only
}

// DB is a handle to the ledger database.
type DB struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

// Open connects to the database described by cfg, applies pending
// migrations and verifies the connection.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	if err := migrateUp(d, cfg, log); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(d.driverName, d.dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(defaultMaxIdleConns, maxOpen))
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", d.classify(err))
	}

	log.Debug("database ready", zap.String("driver", d.name))
	return &DB{db: sqlDB, dialect: d, log: log}, nil
}

// Close releases the connection pool.
func (s *DB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Driver returns the configured driver name.
func (s *DB) Driver() string {
	return s.dialect.name
}

// Unit is one atomic unit of work. Row locks taken through a Unit are held
// until the unit commits or rolls back.
type Unit interface {
	// LockAccount loads an account and holds an exclusive lock on it.
	LockAccount(ctx context.Context, id int64) (model.Account, error)
	// LockTransaction loads a transaction and holds an exclusive lock on it.
	LockTransaction(ctx context.Context, id int64) (model.Transaction, error)
	// SetBalance stores a new balance for an account.
	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	// InsertTransaction persists tx and assigns its ID.
	InsertTransaction(ctx context.Context, tx *model.Transaction) error
	// MarkAnnulled flips the annulled flag of a transaction that is not
	// annulled yet. It returns model.ErrAlreadyAnnulled otherwise.
	MarkAnnulled(ctx context.Context, id int64) error
}

// WithinUnit runs fn inside a database transaction. If fn returns an error
// or panics the transaction is rolled back, otherwise it is committed.
func (s *DB) WithinUnit(ctx context.Context, fn func(Unit) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning unit of work: %w", s.dialect.classify(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&unit{tx: tx, d: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing unit of work: %w", s.dialect.classify(err))
	}
	return nil
}

type unit struct {
	tx *sql.Tx
	d  dialect
}

func (u *unit) LockAccount(ctx context.Context, id int64) (model.Account, error) {
	q := u.d.rebind(selectAccount+" WHERE id = ?") + u.d.forUpdate
	a, err := scanAccount(u.tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("locking account %d: %w", id, u.d.classify(err))
	}
	return a, nil
}

func (u *unit) LockTransaction(ctx context.Context, id int64) (model.Transaction, error) {
	q := u.d.rebind(selectTransaction+" WHERE id = ?") + u.d.forUpdate
	t, err := scanTransaction(u.tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("locking transaction %d: %w", id, u.d.classify(err))
	}
	return t, nil
}

func (u *unit) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	res, err := u.tx.ExecContext(ctx, u.d.rebind(`UPDATE accounts SET balance = ? WHERE id = ?`),
		balance.StringFixed(model.AmountPlaces), accountID)
	if err != nil {
		return fmt.Errorf("updating balance of account %d: %w", accountID, u.d.classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("account %d: %w", accountID, model.ErrNotFound)
	}
	return nil
}

func (u *unit) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	var reverses sql.NullInt64
	if t.ReversesID != nil {
		reverses = sql.NullInt64{Int64: *t.ReversesID, Valid: true}
	}
	q := u.d.rebind(`INSERT INTO transactions
		(created_at, description, debit_account_id, credit_account_id, amount, is_reversal, reversed_transaction_id, annulled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := u.tx.QueryRowContext(ctx, q,
		t.CreatedAt.UTC(),
		t.Description,
		t.DebitAccountID,
		t.CreditAccountID,
		t.Amount.StringFixed(model.AmountPlaces),
		t.IsReversal,
		reverses,
		t.Annulled,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", u.d.classify(err))
	}
	return nil
}

func (u *unit) MarkAnnulled(ctx context.Context, id int64) error {
	res, err := u.tx.ExecContext(ctx,
		u.d.rebind(`UPDATE transactions SET annulled = ? WHERE id = ? AND annulled = ?`), true, id, false)
	if err != nil {
		return fmt.Errorf("annulling transaction %d: %w", id, u.d.classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("annulling transaction %d: %w", id, u.d.classify(err))
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, model.ErrAlreadyAnnulled)
	}
	return nil
}
