package journal

import (
	"context"
	"slices"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// lockOrder returns ids ascending with duplicates removed. Every unit that
// locks several accounts acquires the locks in this order, so two postings
// over the same pair in opposite directions cannot deadlock.
func lockOrder(ids ...int64) []int64 {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	return slices.Compact(ordered)
}

// lockAccounts locks the accounts in canonical order and returns them by ID.
func lockAccounts(ctx context.Context, u store.Unit, ids ...int64) (map[int64]model.Account, error) {
	locked := make(map[int64]model.Account, len(ids))
	for _, id := range lockOrder(ids...) {
		a, err := u.LockAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = a
	}
	return locked, nil
}
