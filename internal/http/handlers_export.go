package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"fintrack/internal/auth"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

type exportFunc func(ctx context.Context, userID int64, w io.Writer) error

// serveExport renders a document into memory and sends it as an attachment.
func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, write exportFunc, contentType, filename, format string) {
	var buf bytes.Buffer
	if err := write(r.Context(), userID(r), &buf); err != nil {
		fields := applog.NewFields().WithUser(userID(r))
		fields[applog.FieldFormat] = format
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Export failed", err,
			applog.ComponentExport, applog.OpExport, fields)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, s.finance.ExportPDF, export.PDFContentType, "transactions.pdf", "pdf")
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, s.finance.ExportXLSX, export.XLSXContentType, "budget_details.xlsx", "xlsx")
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, s.finance.ExportCSV, export.CSVContentType, "transactions.csv", "csv")
}

// handleLoadDataset imports the CSV file configured as the dataset path.
func (s *Server) handleLoadDataset(w http.ResponseWriter, r *http.Request) {
	if s.datasetPath == "" {
		redirectWithFlash(w, r, auth.FlashDanger, "No dataset configured", "/dashboard")
		return
	}

	n, err := s.finance.ImportDatasetFile(r.Context(), userID(r), s.datasetPath)
	if errors.Is(err, fs.ErrNotExist) {
		redirectWithFlash(w, r, auth.FlashDanger, "Dataset file not found", "/dashboard")
		return
	}
	if err != nil {
		fields := applog.NewFields().WithUser(userID(r))
		fields["path"] = s.datasetPath
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Dataset import failed", err,
			applog.ComponentLedger, applog.OpImport, fields)
		redirectWithFlash(w, r, auth.FlashDanger, "Dataset could not be loaded", "/dashboard")
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentLedger).InfoContext(r.Context(), "Dataset loaded",
		applog.FieldUserID, userID(r),
		applog.FieldRows, n)
	redirectWithFlash(w, r, auth.FlashSuccess, "Dataset loaded successfully", "/dashboard")
}
