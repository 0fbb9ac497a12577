package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// LedgerParser parses posting requests from a delimited file with a header
// row. Columns are matched by name: debit, credit and amount are required,
// description is optional.
type LedgerParser struct {
	Name  string
	Comma rune
}

var requiredColumns = []string{"debit", "credit", "amount"}

// Format returns the parser name.
func (p *LedgerParser) Format() string { return p.Name }

// Parse reads posting requests. Each request carries the file line its row
// starts on, header being line 1.
func (p *LedgerParser) Parse(r io.Reader) ([]PostingRequest, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	if p.Comma != 0 {
		cr.Comma = p.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", p.Name, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%s header is missing column %q", p.Name, c)
		}
	}

	var reqs []PostingRequest
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s CSV: %w", p.Name, err)
		}
		// Quoted fields may span lines, so ask the reader where the row began.
		line, _ := cr.FieldPos(0)
		req, err := parseLedgerRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		req.Line = line
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func parseLedgerRow(rec []string, cols map[string]int) (PostingRequest, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	amount, err := decimal.NewFromString(field("amount"))
	if err != nil {
		return PostingRequest{}, fmt.Errorf("parsing amount %q: %w", field("amount"), err)
	}

	req := PostingRequest{
		DebitNumber:  field("debit"),
		CreditNumber: field("credit"),
		Amount:       amount,
		Description:  field("description"),
	}
	if req.DebitNumber == "" || req.CreditNumber == "" {
		return PostingRequest{}, errors.New("debit and credit account numbers are required")
	}
	return req, nil
}
