package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/logging"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/retry"
	"github.com/cleared-dev/ledger/internal/store"
)

// app holds the services a command runs against.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *store.DB
	accounts *accounts.Service
	journal  *journal.Service
	retry    retry.Policy
}

// openApp resolves the configuration, builds the logger and opens (and
// migrates) the database.
func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, store.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout(),
	}, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		accounts: accounts.NewService(db, id.NewRandom(id.AccountNumberDigits), log),
		journal:  journal.NewService(db, journal.WithLogger(log)),
		retry:    retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay, Log: log},
	}, nil
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Resolve(opts.configPath, opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.Database.DSN = opts.dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) Close() error {
	err := a.db.Close()
	_ = a.log.Sync()
	return err
}

// accountByNumber resolves a user-supplied account number.
func (a *app) accountByNumber(ctx context.Context, number string) (model.Account, error) {
	acct, err := a.accounts.ByNumber(ctx, number)
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", number, describe(err))
	}
	return acct, nil
}

// describe rewrites taxonomy errors into messages fit for the terminal.
func describe(err error) error {
	switch {
	case errors.Is(err, model.ErrProtected):
		return fmt.Errorf("%w (delete the records that reference it first)", err)
	case errors.Is(err, model.ErrTransient):
		return fmt.Errorf("%w (database busy, try again)", err)
	default:
		return err
	}
}
