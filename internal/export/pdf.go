package export

import (
	"fmt"
	"io"
	"time"

	"fintrack/internal/core"

	"github.com/go-pdf/fpdf"
)

const PDFContentType = "application/pdf"

// column widths in points, matching a letter page with 56pt margins
var pdfColumns = []float64{100, 300, 100}

// WritePDF renders the transaction table titled "Transaction Details".
func WritePDF(w io.Writer, txs []core.Transaction) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(56, 56, 56)
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetTitle("Transaction Details", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 30, "Transaction Details", "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, h := range transactionHeader {
		pdf.CellFormat(pdfColumns[i], 24, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
	for _, tx := range txs {
		cells := []string{tx.Date.String(), tr(tx.Category), tx.Amount.String()}
		for i, c := range cells {
			pdf.CellFormat(pdfColumns[i], 18, c, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
