package journal

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationErrors collects every violation found in a request.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%s: %s", model.ErrValidation, strings.Join(msgs, "; "))
}

// Is lets callers match ValidationErrors with errors.Is(err, model.ErrValidation).
func (errs ValidationErrors) Is(target error) bool {
	return target == model.ErrValidation
}

// Fields returns the names of the invalid fields in order.
func (errs ValidationErrors) Fields() []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

// Validate checks a transaction before posting and reports every violated
// rule, not just the first.
func Validate(tx model.Transaction) ValidationErrors {
	var errs ValidationErrors

	if tx.DebitAccountID == 0 {
		errs = append(errs, ValidationError{Field: "debit_account", Description: "debit account is required"})
	}
	if tx.CreditAccountID == 0 {
		errs = append(errs, ValidationError{Field: "credit_account", Description: "credit account is required"})
	}
	if tx.DebitAccountID != 0 && tx.DebitAccountID == tx.CreditAccountID {
		errs = append(errs, ValidationError{Field: "credit_account", Description: "debit and credit accounts must differ"})
	}

	switch {
	case !tx.Amount.IsPositive():
		errs = append(errs, ValidationError{Field: "amount", Description: "amount must be positive"})
	case !model.RoundAmount(tx.Amount).IsPositive():
		errs = append(errs, ValidationError{
			Field:       "amount",
			Description: fmt.Sprintf("amount %s rounds to zero", tx.Amount),
		})
	}

	// Annul is the only way to produce these.
	if tx.Annulled {
		errs = append(errs, ValidationError{Field: "annulled", Description: "a new transaction cannot be annulled"})
	}
	if tx.IsReversal {
		errs = append(errs, ValidationError{Field: "is_reversal", Description: "reversals are created by annulling a transaction"})
	}
	if tx.ReversesID != nil {
		errs = append(errs, ValidationError{Field: "reversed_transaction", Description: "only reversals reference a reversed transaction"})
	}

	return errs
}
