package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fintrack/internal/core"
)

const CSVContentType = "text/csv"

// WriteCSV writes the transaction table with a Date,Category,Amount header.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := cw.Write([]string{tx.Date.String(), tx.Category, tx.Amount.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset with category, amount and date columns in any
// order (header names are case-insensitive). The returned transactions have no
// owner set. Any malformed row fails the whole read.
func ReadCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{"category", "amount", "date"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("dataset is missing the %q column", col)
		}
	}

	var out []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		amount, err := core.ParseMoney(rec[idx["amount"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: amount %q: %w", line, rec[idx["amount"]], err)
		}
		date, err := core.ParseDate(rec[idx["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tx := core.Transaction{
			Category: strings.TrimSpace(rec[idx["category"]]),
			Amount:   amount,
			Date:     date,
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, tx)
	}
	return out, nil
}
