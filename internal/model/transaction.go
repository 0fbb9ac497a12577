package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits kept for money.
const AmountPlaces = 2

// RoundAmount rounds d half-up (away from zero) to two decimal places.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// Transaction is one posted double-entry movement.
type Transaction struct {
	ID              int64
	CreatedAt       time.Time
	Description     string
	DebitAccountID  int64
	CreditAccountID int64
	Amount          decimal.Decimal
	IsReversal      bool
	ReversesID      *int64 // set only on reversals; lookup by ID, not ownership
	Annulled        bool
}

// Posted reports whether t has been assigned a storage identity.
func (t Transaction) Posted() bool {
	return t.ID != 0
}
