package accounts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

func openDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db := openDB(t)
	return NewService(db, id.NewSequence(1000000001, id.AccountNumberDigits), nil), db
}

// scripted returns the given numbers in order.
type scripted struct {
	numbers []string
	calls   int
}

func (s *scripted) Next() (string, error) {
	n := s.numbers[s.calls%len(s.numbers)]
	s.calls++
	return n, nil
}

func TestCreateAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	art, err := svc.CreateArticle(ctx, "Current assets")
	require.NoError(t, err)
	g, err := svc.CreateGroup(ctx, art.ID, "Cash")
	require.NoError(t, err)

	acct, err := svc.CreateAccount(ctx, NewAccount{Name: "Cash on hand", Type: model.AccountTypeAsset, GroupID: g.ID})
	require.NoError(t, err)
	assert.Equal(t, "1000000001", acct.Number)
	assert.True(t, acct.Balance.IsZero())

	got, err := svc.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cash on hand", got.Name)
	assert.Equal(t, g.ID, got.GroupID)

	byNum, err := svc.ByNumber(ctx, "1000000001")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, byNum.ID)
}

func TestCreateAccount_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, NewAccount{Name: "  ", Type: model.AccountTypeAsset, GroupID: 1})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.CreateAccount(ctx, NewAccount{Name: "Revenue", Type: "revenue", GroupID: 1})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.CreateArticle(ctx, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.CreateGroup(ctx, 1, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.ByNumber(ctx, "12345")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCreateAccount_RetriesNumberCollision(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	art, err := db.CreateArticle(ctx, "A")
	require.NoError(t, err)
	g, err := db.CreateGroup(ctx, art.ID, "G")
	require.NoError(t, err)

	gen := &scripted{numbers: []string{"1111111111", "1111111111", "2222222222"}}
	svc := NewService(db, gen, nil)

	first, err := svc.CreateAccount(ctx, NewAccount{Name: "First", Type: model.AccountTypeAsset, GroupID: g.ID})
	require.NoError(t, err)
	assert.Equal(t, "1111111111", first.Number)

	second, err := svc.CreateAccount(ctx, NewAccount{Name: "Second", Type: model.AccountTypeAsset, GroupID: g.ID})
	require.NoError(t, err)
	assert.Equal(t, "2222222222", second.Number)
	assert.Equal(t, 3, gen.calls)
}

func TestCreateAccount_GivesUpAfterRepeatedCollisions(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	art, err := db.CreateArticle(ctx, "A")
	require.NoError(t, err)
	g, err := db.CreateGroup(ctx, art.ID, "G")
	require.NoError(t, err)

	gen := &scripted{numbers: []string{"1111111111"}}
	svc := NewService(db, gen, nil)

	_, err = svc.CreateAccount(ctx, NewAccount{Name: "First", Type: model.AccountTypeAsset, GroupID: g.ID})
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, NewAccount{Name: "Second", Type: model.AccountTypeAsset, GroupID: g.ID})
	require.ErrorIs(t, err, model.ErrDuplicate)
	assert.Equal(t, 1+maxNumberAttempts, gen.calls)
}

func TestCreateAccount_UnknownGroup(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAccount(context.Background(), NewAccount{Name: "Orphan", Type: model.AccountTypeAsset, GroupID: 99})
	assert.Error(t, err)
}

func TestSeedDefaultChart(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	chart := DefaultChart()
	created, err := svc.Seed(ctx, chart)
	require.NoError(t, err)
	require.Len(t, created, len(chart))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(chart))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Number, all[i].Number, "ordered by number")
	}

	arts, err := db.ListArticles(ctx)
	require.NoError(t, err)
	assert.Len(t, arts, 4)

	mixed, err := svc.ByType(ctx, model.AccountTypeMixed)
	require.NoError(t, err)
	assert.Len(t, mixed, 2)
	for _, a := range mixed {
		assert.Equal(t, model.AccountTypeMixed, a.Type)
	}
}

func TestSeed_ReusesExistingArticlesAndGroups(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	chart := []ChartEntry{{Article: "Equity", Group: "Capital", Name: "Share capital", Type: model.AccountTypeLiability}}
	_, err := svc.Seed(ctx, chart)
	require.NoError(t, err)

	chart[0].Name = "Retained earnings"
	_, err = svc.Seed(ctx, chart)
	require.NoError(t, err)

	groups, err := db.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, all[0].GroupID, all[1].GroupID)
}

func TestDelete_Protected(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	accts, err := svc.Seed(ctx, []ChartEntry{
		{Article: "A", Group: "G", Name: "Cash", Type: model.AccountTypeAsset},
		{Article: "A", Group: "G", Name: "Capital", Type: model.AccountTypeLiability},
		{Article: "A", Group: "G", Name: "Spare", Type: model.AccountTypeAsset},
	})
	require.NoError(t, err)
	cash, capital, spare := accts[0], accts[1], accts[2]

	_, err = journal.NewService(db).CreateAndPost(ctx, journal.PostParams{
		DebitAccountID:  cash.ID,
		CreditAccountID: capital.ID,
		Amount:          decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, cash.ID), model.ErrProtected)
	assert.ErrorIs(t, svc.DeleteGroup(ctx, cash.GroupID), model.ErrProtected)

	groups, err := db.ListGroups(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteArticle(ctx, groups[0].ArticleID), model.ErrProtected)

	require.NoError(t, svc.Delete(ctx, spare.ID))
	_, err = svc.Get(ctx, spare.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, spare.ID), model.ErrNotFound)
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Seed(ctx, []ChartEntry{
		{Article: "Equity", Group: "Capital", Name: "Share capital", Type: model.AccountTypeLiability},
		{Article: "Current assets", Group: "Cash", Name: "Cash on hand", Type: model.AccountTypeAsset},
	})
	require.NoError(t, err)

	rows, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1000000001", rows[0].Account.Number)
	assert.Equal(t, "Equity", rows[0].Article)
	assert.Equal(t, "Capital", rows[0].Group)
	assert.Equal(t, "Current assets", rows[1].Article)
	assert.Equal(t, "Cash", rows[1].Group)
}
