package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type transactionsView struct {
	Records     []core.Transaction
	Categories  []string
	Budget      *core.Budget
	Notice      string
	NoticeLevel string
}

func (s *Server) loadTransactionsView(r *http.Request) (transactionsView, error) {
	ov, err := s.finance.Overview(r.Context(), userID(r))
	if err != nil {
		return transactionsView{}, err
	}
	cats, err := s.finance.Categories(r.Context(), userID(r))
	if err != nil {
		return transactionsView{}, err
	}
	return transactionsView{Records: ov.Transactions, Categories: cats, Budget: ov.Budget}, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	view, err := s.loadTransactionsView(r)
	if err != nil {
		s.serverError(w, r, "Load transactions failed", err, applog.ComponentLedger, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "transactions.html", "Transactions", view)
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid request", "/transactions")
		return
	}
	amount, err := parseMoneyField(r.PostForm, "amount")
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid amount", "/transactions")
		return
	}
	date, err := parseOptionalDate(r.PostForm, "date")
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid date", "/transactions")
		return
	}

	tx, err := s.finance.AddTransaction(r.Context(), userID(r), services.NewTransaction{
		Category: formValue(r.PostForm, "category"),
		Amount:   amount,
		Date:     date,
	})
	if msg, ok := validationMessage(err); ok {
		redirectWithFlash(w, r, auth.FlashDanger, msg, "/transactions")
		return
	}
	if err != nil {
		s.serverError(w, r, "Add record failed", err, applog.ComponentLedger, applog.OpCreate)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransactionSaved(r.Context(), applog.OpCreate, userID(r), tx)
	redirectWithFlash(w, r, auth.FlashSuccess, "Record added successfully", "/transactions")
}

type editView struct {
	Record     core.Transaction
	Categories []string
}

func (s *Server) handleEditRecordForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	tx, err := s.finance.GetTransaction(r.Context(), userID(r), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, "Load record failed", err, applog.ComponentLedger, applog.OpRead)
		return
	}
	cats, err := s.finance.Categories(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, r, "Load categories failed", err, applog.ComponentLedger, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "edit_record.html", "Edit record", editView{Record: tx, Categories: cats})
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid request", r.URL.Path)
		return
	}
	amount, err := parseMoneyField(r.PostForm, "amount")
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid amount", r.URL.Path)
		return
	}

	tx, err := s.finance.UpdateTransaction(r.Context(), userID(r), id, formValue(r.PostForm, "category"), amount)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if msg, ok := validationMessage(err); ok {
		redirectWithFlash(w, r, auth.FlashDanger, msg, r.URL.Path)
		return
	}
	if err != nil {
		s.serverError(w, r, "Update record failed", err, applog.ComponentLedger, applog.OpUpdate)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransactionSaved(r.Context(), applog.OpUpdate, userID(r), tx)
	redirectWithFlash(w, r, auth.FlashSuccess, "Record updated successfully", "/transactions")
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	err := s.finance.DeleteTransaction(r.Context(), userID(r), id)
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, "Delete record failed", err, applog.ComponentLedger, applog.OpDelete)
		return
	}
	redirectWithFlash(w, r, auth.FlashSuccess, "Record deleted successfully", "/transactions")
}
