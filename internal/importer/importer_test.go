package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/retry"
	"github.com/cleared-dev/ledger/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ledgerParser() *LedgerParser { return &LedgerParser{Name: "ledger", Comma: ','} }

func TestLedgerParser_Testdata(t *testing.T) {
	f, err := os.Open("../../testdata/postings.csv")
	require.NoError(t, err)
	defer f.Close()

	reqs, err := ledgerParser().Parse(f)
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	assert.Equal(t, 2, reqs[0].Line)
	assert.Equal(t, "1000000001", reqs[0].DebitNumber)
	assert.Equal(t, "1000000006", reqs[0].CreditNumber)
	assert.Equal(t, "1000.00", reqs[0].Amount.StringFixed(2))
	assert.Equal(t, "Initial capital", reqs[0].Description)

	// Rounding is the journal's job; the parser keeps the raw amount.
	assert.Equal(t, "99.995", reqs[2].Amount.String())
}

func TestLedgerParser_ColumnsByName(t *testing.T) {
	in := "amount,description,credit,debit\n10.50,\"rent, march\",5000000001,1000000001\n"

	reqs, err := ledgerParser().Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "1000000001", reqs[0].DebitNumber)
	assert.Equal(t, "5000000001", reqs[0].CreditNumber)
	assert.Equal(t, "rent, march", reqs[0].Description)
}

func TestLedgerParser_MultilineFieldKeepsLineNumbers(t *testing.T) {
	in := "debit,credit,amount,description\n" +
		"1000000001,5000000001,1.00,\"first\nsecond\nthird\"\n" +
		"1000000001,5000000001,2.00,next\n" +
		"1000000001,5000000001,x,bad\n"

	_, err := ledgerParser().Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 6")

	reqs, err := ledgerParser().Parse(strings.NewReader(strings.TrimSuffix(in, "1000000001,5000000001,x,bad\n")))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "first\nsecond\nthird", reqs[0].Description)
	assert.Equal(t, 2, reqs[0].Line)
	assert.Equal(t, 5, reqs[1].Line)
}

func TestLedgerParser_DescriptionOptional(t *testing.T) {
	reqs, err := ledgerParser().Parse(strings.NewReader("debit,credit,amount\n1,2,3\n"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Description)
}

func TestLedgerParser_Semicolon(t *testing.T) {
	p := &LedgerParser{Name: "ledger-semicolon", Comma: ';'}
	reqs, err := p.Parse(strings.NewReader("debit;credit;amount;description\n1000000001;5000000001;7.25;a, b\n"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "a, b", reqs[0].Description)
}

func TestLedgerParser_Empty(t *testing.T) {
	reqs, err := ledgerParser().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, reqs)

	reqs, err = ledgerParser().Parse(strings.NewReader("debit,credit,amount\n"))
	require.NoError(t, err)
	assert.Nil(t, reqs)
}

func TestLedgerParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing column", "debit,amount\n1,2\n", `missing column "credit"`},
		{"bad amount", "debit,credit,amount\n1,2,ten\n", "parsing amount"},
		{"missing account", "debit,credit,amount\n1,,2\n", "account numbers are required"},
		{"row number", "debit,credit,amount\n1,2,3\n1,2,x\n", "row 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledgerParser().Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(ledgerParser())
	assert.NotNil(t, r.Get("Ledger"))
	assert.NotNil(t, r.Get("LEDGER"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(ledgerParser())
	assert.Panics(t, func() { r.Register(ledgerParser()) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("ledger"))
	assert.NotNil(t, r.Get("ledger-semicolon"))
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "march.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "other.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "march.csv", files[0].Name)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processedDir := filepath.Join(dir, "import", "processed")
	require.NoError(t, os.MkdirAll(processedDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processedDir, "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_NoDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "march.csv"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "march.csv"))

	_, err := os.Stat(filepath.Join(importDir, "march.csv"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "march.csv"))
	assert.NoError(t, err)
}

func newLedger(t *testing.T) (*store.DB, *journal.Service) {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, DSN: filepath.Join(t.TempDir(), "ledger.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	art, err := db.CreateArticle(ctx, "A")
	require.NoError(t, err)
	g, err := db.CreateGroup(ctx, art.ID, "G")
	require.NoError(t, err)
	_, err = db.CreateAccount(ctx, model.Account{Number: "1000000001", Name: "Cash", Type: model.AccountTypeAsset, GroupID: g.ID})
	require.NoError(t, err)
	_, err = db.CreateAccount(ctx, model.Account{Number: "5000000001", Name: "Capital", Type: model.AccountTypeLiability, GroupID: g.ID})
	require.NoError(t, err)

	return db, journal.NewService(db)
}

func TestRun_PostsEachRowIndependently(t *testing.T) {
	db, svc := newLedger(t)
	ctx := context.Background()

	reqs, err := ledgerParser().Parse(strings.NewReader(
		"debit,credit,amount,description\n" +
			"1000000001,5000000001,100.00,capital\n" +
			"1000000001,9999999999,5.00,unknown account\n" +
			"1000000001,1000000001,5.00,self loop\n" +
			"5000000001,1000000001,20.005,partial refund\n",
	))
	require.NoError(t, err)

	res := New(db, svc, retry.Policy{MaxAttempts: 1}, nil).Run(ctx, reqs)

	require.Len(t, res.Posted, 2)
	assert.Equal(t, "20.01", res.Posted[1].Amount.StringFixed(2))

	require.Len(t, res.Failed, 2)
	assert.Equal(t, 3, res.Failed[0].Line)
	assert.ErrorIs(t, res.Failed[0], model.ErrNotFound)
	assert.Equal(t, 4, res.Failed[1].Line)
	assert.ErrorIs(t, res.Failed[1], model.ErrValidation)

	err = res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), "row 4")

	cash, err := db.AccountByNumber(ctx, "1000000001")
	require.NoError(t, err)
	assert.Equal(t, "79.99", cash.Balance.StringFixed(2))
}

func TestRun_AllPosted(t *testing.T) {
	db, svc := newLedger(t)
	reqs := []PostingRequest{{Line: 2, DebitNumber: "1000000001", CreditNumber: "5000000001", Amount: dec("1")}}

	res := New(db, svc, retry.Policy{MaxAttempts: 1}, nil).Run(context.Background(), reqs)
	assert.NoError(t, res.Err())
	assert.Len(t, res.Posted, 1)
}

// flakyPoster fails with a transient error a fixed number of times.
type flakyPoster struct {
	Poster
	failures int
	calls    int
}

func (p *flakyPoster) CreateAndPost(ctx context.Context, params journal.PostParams) (model.Transaction, error) {
	p.calls++
	if p.calls <= p.failures {
		return model.Transaction{}, fmt.Errorf("%w: deadlock detected", model.ErrTransient)
	}
	return p.Poster.CreateAndPost(ctx, params)
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	db, svc := newLedger(t)
	poster := &flakyPoster{Poster: svc, failures: 2}
	reqs := []PostingRequest{{Line: 2, DebitNumber: "1000000001", CreditNumber: "5000000001", Amount: dec("3")}}

	res := New(db, poster, retry.Policy{MaxAttempts: 3, BaseDelay: time.Microsecond}, nil).Run(context.Background(), reqs)
	require.NoError(t, res.Err())
	assert.Equal(t, 3, poster.calls)

	txs, err := db.ListTransactions(context.Background(), store.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	db, svc := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []PostingRequest{
		{Line: 2, DebitNumber: "1000000001", CreditNumber: "5000000001", Amount: dec("1")},
		{Line: 3, DebitNumber: "1000000001", CreditNumber: "5000000001", Amount: dec("1")},
	}
	res := New(db, svc, retry.Policy{MaxAttempts: 1}, nil).Run(ctx, reqs)
	assert.Empty(t, res.Posted)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0], context.Canceled)
}
