package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/cleared-dev/ledger/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect captures the differences between the supported databases.
type dialect struct {
	name       string // config name
	driverName string // database/sql driver
	migrateDir string // directory under migrations/
	forUpdate  string // row-lock suffix for SELECT
	numbered   bool   // $1 placeholders instead of ?
}

var (
	sqliteDialect = dialect{
		name:       DriverSQLite,
		driverName: "sqlite3",
		migrateDir: "migrations/sqlite",
		// SQLite has no row locks. Units start with BEGIN IMMEDIATE, which
		// takes the database write lock before the first read.
		forUpdate: "",
	}
	postgresDialect = dialect{
		name:       DriverPostgres,
		driverName: "pgx",
		migrateDir: "migrations/postgres",
		forUpdate:  " FOR UPDATE",
		numbered:   true,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		return sqliteDialect, nil
	case DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// dsn returns the connection string handed to sql.Open.
func (d dialect) dsn(cfg Config) string {
	if d.name != DriverSQLite {
		return cfg.DSN
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	dsn := cfg.DSN
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=" +
		strconv.FormatInt(busy.Milliseconds(), 10)
}

// rebind rewrites ? placeholders to $n for numbered dialects.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// classify maps driver errors onto the model error taxonomy. Errors that
// match nothing are returned unchanged.
func (d dialect) classify(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", model.ErrTransient, err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", model.ErrDuplicate, err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", model.ErrProtected, err)
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001", "55P03", "57014":
			// deadlock_detected, serialization_failure, lock_not_available,
			// query_canceled (lock_timeout/statement_timeout)
			return fmt.Errorf("%w: %w", model.ErrTransient, err)
		case "23505":
			return fmt.Errorf("%w: %w", model.ErrDuplicate, err)
		case "23503":
			return fmt.Errorf("%w: %w", model.ErrProtected, err)
		}
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %w", model.ErrTransient, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", model.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", model.ErrTransient, err)
	}
	return err
}

const defaultBusyTimeout = 10 * time.Second
