package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeMixed     AccountType = "mixed"
)

// AccountTypes lists every valid account type.
var AccountTypes = []AccountType{AccountTypeAsset, AccountTypeLiability, AccountTypeMixed}

// ParseAccountType validates s as an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	for _, t := range AccountTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Role is the side an account takes in a transaction.
type Role string

const (
	RoleDebit  Role = "debit"
	RoleCredit Role = "credit"
)

type signKey struct {
	typ  AccountType
	role Role
}

// signRules maps (type, role) to the sign of the balance delta.
// Mixed accounts follow the asset rule on both sides.
var signRules = map[signKey]int32{
	{AccountTypeAsset, RoleDebit}:      1,
	{AccountTypeAsset, RoleCredit}:     -1,
	{AccountTypeLiability, RoleDebit}:  -1,
	{AccountTypeLiability, RoleCredit}: 1,
	{AccountTypeMixed, RoleDebit}:      1,
	{AccountTypeMixed, RoleCredit}:     -1,
}

// Delta returns the signed balance change for an account of type t taking
// the given role with a positive amount. Unknown types produce a zero delta.
func Delta(t AccountType, role Role, amount decimal.Decimal) decimal.Decimal {
	sign, ok := signRules[signKey{t, role}]
	if !ok {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt32(sign))
}

// Account is a ledger account.
type Account struct {
	ID      int64
	Number  string // 10-digit code, immutable
	Name    string
	Type    AccountType
	GroupID int64
	Balance decimal.Decimal
}

// Apply returns a copy of a with the delta for role and amount applied.
// An account whose type has no sign rule fails with ErrInvariantViolation.
func (a Account) Apply(role Role, amount decimal.Decimal) (Account, error) {
	if _, ok := signRules[signKey{a.Type, role}]; !ok {
		return a, fmt.Errorf("account %d has type %q with no %s rule: %w", a.ID, a.Type, role, ErrInvariantViolation)
	}
	a.Balance = a.Balance.Add(Delta(a.Type, role, amount))
	return a, nil
}

func (a Account) String() string {
	return a.Number + " " + a.Name
}
