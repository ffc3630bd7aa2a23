package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/export"
)

// ImportDataset reads a date,category,amount CSV and stores every row for
// userID in one batch. A malformed row rejects the whole file.
func (s *FinanceService) ImportDataset(ctx context.Context, userID int64, r io.Reader) (int, error) {
	txs, err := export.ReadCSV(r)
	if err != nil {
		return 0, fmt.Errorf("read dataset: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}
	for i := range txs {
		txs[i].UserID = userID
	}

	n, err := s.store.CreateTransactions(ctx, txs)
	if err != nil {
		return 0, fmt.Errorf("save dataset: %w", err)
	}

	slog.InfoContext(ctx, "Dataset imported", "user_id", userID, "rows", n)

	s.changed(ctx, userID, amqp.ReasonDatasetLoaded)
	return n, nil
}

// ImportDatasetFile opens path and imports it with ImportDataset.
func (s *FinanceService) ImportDatasetFile(ctx context.Context, userID int64, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return s.ImportDataset(ctx, userID, f)
}

// ExportPDF writes the user's transaction table as a PDF document.
func (s *FinanceService) ExportPDF(ctx context.Context, userID int64, w io.Writer) error {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return err
	}
	return export.WritePDF(w, ov.Transactions)
}

// ExportXLSX writes the transactions, overall and category budget sheets.
func (s *FinanceService) ExportXLSX(ctx context.Context, userID int64, w io.Writer) error {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return err
	}
	return export.WriteXLSX(w, ov.Transactions, ov.Summary)
}

// ExportCSV writes the transaction table as CSV.
func (s *FinanceService) ExportCSV(ctx context.Context, userID int64, w io.Writer) error {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, ov.Transactions)
}

// Tables projects the user's ledger into the spreadsheet tables.
func (s *FinanceService) Tables(ctx context.Context, userID int64) ([]export.Table, error) {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return export.Tables(ov.Transactions, ov.Summary), nil
}
