package accounts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// ChartEntry describes one account to seed.
type ChartEntry struct {
	Article string
	Group   string
	Name    string
	Type    model.AccountType
}

// ChartRow is an exported account with its classification.
type ChartRow struct {
	Account model.Account
	Article string
	Group   string
}

var chartHeader = []string{"number", "name", "type", "article", "group", "balance"}

// requiredColumns must be present in an imported chart. number and balance
// are accepted but ignored: numbers are generated and balances start at zero.
var requiredColumns = []string{"name", "type", "article", "group"}

// ReadChart reads a chart CSV. The first row is a header; columns are
// matched by name.
func ReadChart(r io.Reader) ([]ChartEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chart header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("chart header is missing column %q", c)
		}
	}

	var entries []ChartEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading chart CSV: %w", err)
		}

		e, err := unmarshalEntry(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func unmarshalEntry(rec []string, cols map[string]int) (ChartEntry, error) {
	field := func(name string) string {
		return strings.TrimSpace(rec[cols[name]])
	}

	typ, err := model.ParseAccountType(field("type"))
	if err != nil {
		return ChartEntry{}, err
	}
	e := ChartEntry{Article: field("article"), Group: field("group"), Name: field("name"), Type: typ}
	switch {
	case e.Article == "":
		return ChartEntry{}, errors.New("article is empty")
	case e.Group == "":
		return ChartEntry{}, errors.New("group is empty")
	case e.Name == "":
		return ChartEntry{}, errors.New("name is empty")
	}
	return e, nil
}

// WriteChart writes exported accounts as CSV, header first.
func WriteChart(w io.Writer, rows []ChartRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(chartHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(MarshalChartRow(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalChartRow converts a ChartRow to a CSV row.
func MarshalChartRow(r ChartRow) []string {
	return []string{
		r.Account.Number,
		r.Account.Name,
		string(r.Account.Type),
		r.Article,
		r.Group,
		r.Account.Balance.StringFixed(model.AmountPlaces),
	}
}
