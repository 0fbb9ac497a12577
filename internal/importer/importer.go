// Package importer posts batches of transactions read from CSV files.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/retry"
)

// PostingRequest is one row of an import file. Accounts are referenced by
// number.
type PostingRequest struct {
	Line         int
	DebitNumber  string
	CreditNumber string
	Amount       decimal.Decimal
	Description  string
}

// Parser converts an import file into PostingRequests.
type Parser interface {
	Parse(r io.Reader) ([]PostingRequest, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&LedgerParser{Name: "ledger", Comma: ','})
	r.Register(&LedgerParser{Name: "ledger-semicolon", Comma: ';'})
	return r
}

// importDir is the subdirectory for import CSVs.
const importDir = "import"

// processedDir is the subdirectory for processed CSVs.
const processedDir = "import/processed"

// Scan returns CSV files in <root>/import/.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Accounts resolves account numbers.
type Accounts interface {
	AccountByNumber(ctx context.Context, number string) (model.Account, error)
}

// Poster posts a single transaction.
type Poster interface {
	CreateAndPost(ctx context.Context, params journal.PostParams) (model.Transaction, error)
}

// Importer posts PostingRequests one by one. Each row is its own unit of
// work: a failing row is reported and the remaining rows are still posted.
type Importer struct {
	accounts Accounts
	poster   Poster
	retry    retry.Policy
	log      *zap.Logger
}

// New creates an Importer. log may be nil.
func New(accounts Accounts, poster Poster, policy retry.Policy, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{accounts: accounts, poster: poster, retry: policy, log: log}
}

// RowError is the failure of one import row.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Line, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// Result summarizes an import run.
type Result struct {
	Posted []model.Transaction
	Failed []RowError
}

// Err joins the row failures, or returns nil when every row was posted.
func (r Result) Err() error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Run posts reqs in order. It stops early only when ctx is done.
func (im *Importer) Run(ctx context.Context, reqs []PostingRequest) Result {
	var res Result
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, RowError{Line: req.Line, Err: err})
			break
		}

		tx, err := im.post(ctx, req)
		if err != nil {
			im.log.Info("import row rejected", zap.Int("line", req.Line), zap.Error(err))
			res.Failed = append(res.Failed, RowError{Line: req.Line, Err: err})
			continue
		}
		res.Posted = append(res.Posted, tx)
	}

	im.log.Info("import finished",
		zap.Int("posted", len(res.Posted)),
		zap.Int("failed", len(res.Failed)),
	)
	return res
}

func (im *Importer) post(ctx context.Context, req PostingRequest) (model.Transaction, error) {
	debit, err := im.accounts.AccountByNumber(ctx, req.DebitNumber)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("debit account: %w", err)
	}
	credit, err := im.accounts.AccountByNumber(ctx, req.CreditNumber)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("credit account: %w", err)
	}

	var tx model.Transaction
	err = im.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		tx, err = im.poster.CreateAndPost(ctx, journal.PostParams{
			DebitAccountID:  debit.ID,
			CreditAccountID: credit.ID,
			Amount:          req.Amount,
			Description:     req.Description,
		})
		return err
	})
	return tx, err
}
