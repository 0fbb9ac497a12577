// Package journal posts double-entry transactions and annuls them.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/logging"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

const tracerName = "github.com/cleared-dev/ledger/internal/journal"

// Store is the storage the journal posts through.
type Store interface {
	WithinUnit(ctx context.Context, fn func(store.Unit) error) error
	Transaction(ctx context.Context, id int64) (model.Transaction, error)
}

// Service provides the posting and reversal engines.
type Service struct {
	store  Store
	log    *zap.Logger
	now    func() time.Time
	tracer trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock sets the clock used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a journal Service.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		log:    zap.NewNop(),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostParams holds the fields of a new transaction.
type PostParams struct {
	DebitAccountID  int64
	CreditAccountID int64
	Amount          decimal.Decimal
	Description     string
}

// CreateAndPost builds a transaction from params and posts it.
func (s *Service) CreateAndPost(ctx context.Context, params PostParams) (model.Transaction, error) {
	tx := model.Transaction{
		DebitAccountID:  params.DebitAccountID,
		CreditAccountID: params.CreditAccountID,
		Amount:          params.Amount,
		Description:     params.Description,
	}
	if err := s.Post(ctx, &tx); err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// Post validates tx, locks both accounts, applies the sign-rule deltas and
// stores the balances and the transaction as one unit of work. On success
// tx carries its ID, creation time and rounded amount.
func (s *Service) Post(ctx context.Context, tx *model.Transaction) (err error) {
	ctx, span := s.tracer.Start(ctx, "journal.Post")
	defer func() { endSpan(span, err) }()

	log := s.operationLogger(ctx)
	if tx.Posted() {
		return fmt.Errorf("transaction %d is already posted: %w", tx.ID, model.ErrValidation)
	}
	if verrs := Validate(*tx); len(verrs) > 0 {
		log.Info("posting rejected", zap.Strings("invalid_fields", verrs.Fields()))
		return verrs
	}

	posted := *tx
	posted.Amount = model.RoundAmount(tx.Amount)
	if posted.CreatedAt.IsZero() {
		posted.CreatedAt = s.now()
	}

	log = log.With(
		zap.Int64("debit_account_id", posted.DebitAccountID),
		zap.Int64("credit_account_id", posted.CreditAccountID),
		zap.String("amount", posted.Amount.StringFixed(model.AmountPlaces)),
	)
	span.SetAttributes(
		attribute.Int64("ledger.debit_account_id", posted.DebitAccountID),
		attribute.Int64("ledger.credit_account_id", posted.CreditAccountID),
	)

	err = s.store.WithinUnit(ctx, func(u store.Unit) error {
		return s.apply(ctx, u, &posted)
	})
	if err != nil {
		s.logFailure(log, "posting failed", err)
		return fmt.Errorf("posting transaction: %w", err)
	}

	*tx = posted
	log.Info("transaction posted", zap.Int64("transaction_id", tx.ID))
	return nil
}

// Annul posts the mirror image of a transaction and marks the original as
// annulled, in one unit of work. It returns the reversal.
func (s *Service) Annul(ctx context.Context, id int64) (reversal model.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "journal.Annul", trace.WithAttributes(attribute.Int64("ledger.transaction_id", id)))
	defer func() { endSpan(span, err) }()

	log := s.operationLogger(ctx).With(zap.Int64("transaction_id", id))

	orig, err := s.store.Transaction(ctx, id)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("annulling transaction: %w", err)
	}
	if orig.Annulled {
		log.Info("annul rejected", zap.Error(model.ErrAlreadyAnnulled))
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, model.ErrAlreadyAnnulled)
	}

	err = s.store.WithinUnit(ctx, func(u store.Unit) error {
		// Re-check under the row lock: a concurrent annul may have won.
		cur, err := u.LockTransaction(ctx, id)
		if err != nil {
			return err
		}
		if cur.Annulled {
			return fmt.Errorf("transaction %d: %w", id, model.ErrAlreadyAnnulled)
		}

		amount := model.RoundAmount(cur.Amount)
		if !amount.Equal(cur.Amount) || !amount.IsPositive() {
			return fmt.Errorf("transaction %d has stored amount %s: %w", id, cur.Amount, model.ErrInvariantViolation)
		}

		origID := cur.ID
		reversal = model.Transaction{
			CreatedAt:       s.now(),
			Description:     fmt.Sprintf("Reversal of transaction #%d", cur.ID),
			DebitAccountID:  cur.CreditAccountID,
			CreditAccountID: cur.DebitAccountID,
			Amount:          amount,
			IsReversal:      true,
			ReversesID:      &origID,
		}
		if err := s.apply(ctx, u, &reversal); err != nil {
			return err
		}
		return u.MarkAnnulled(ctx, cur.ID)
	})
	if err != nil {
		s.logFailure(log, "annul failed", err)
		return model.Transaction{}, fmt.Errorf("annulling transaction: %w", err)
	}

	log.Info("transaction annulled", zap.Int64("reversal_id", reversal.ID))
	return reversal, nil
}

// apply locks both accounts of t, applies its deltas and persists the
// balances and t. It must run inside a unit of work.
func (s *Service) apply(ctx context.Context, u store.Unit, t *model.Transaction) error {
	locked, err := lockAccounts(ctx, u, t.DebitAccountID, t.CreditAccountID)
	if err != nil {
		return err
	}

	debit, err := locked[t.DebitAccountID].Apply(model.RoleDebit, t.Amount)
	if err != nil {
		return err
	}
	credit, err := locked[t.CreditAccountID].Apply(model.RoleCredit, t.Amount)
	if err != nil {
		return err
	}

	if err := u.SetBalance(ctx, debit.ID, debit.Balance); err != nil {
		return err
	}
	if err := u.SetBalance(ctx, credit.ID, credit.Balance); err != nil {
		return err
	}
	return u.InsertTransaction(ctx, t)
}

func (s *Service) operationLogger(ctx context.Context) *zap.Logger {
	return s.log.With(append(logging.TraceFields(ctx), zap.String("operation_id", uuid.NewString()))...)
}

// logFailure picks the level by error class: business rejections are
// routine, transient faults are retryable, anything else is unexpected.
func (s *Service) logFailure(log *zap.Logger, msg string, err error) {
	switch {
	case errors.Is(err, model.ErrAlreadyAnnulled), errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrValidation):
		log.Info(msg, zap.Error(err))
	case errors.Is(err, model.ErrTransient):
		log.Warn(msg, zap.Error(err), zap.Bool("retryable", true))
	default:
		log.Error(msg, zap.Error(err))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
