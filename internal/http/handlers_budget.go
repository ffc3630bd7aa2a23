package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// handleSetBudgetLimit creates a new budget and renders the transactions page
// with the notice computed over the budget's window.
func (s *Server) handleSetBudgetLimit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid request", "/transactions")
		return
	}
	limit, err := parseMoneyField(r.PostForm, "budget_limit")
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid budget limit", "/transactions")
		return
	}
	start, err := core.ParseDate(r.PostForm.Get("start_date"))
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid start date", "/transactions")
		return
	}
	end, err := core.ParseDate(r.PostForm.Get("end_date"))
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid end date", "/transactions")
		return
	}
	categories, err := parseCategoryBudgets(r.PostForm)
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid category budget", "/transactions")
		return
	}

	res, err := s.finance.SetBudget(r.Context(), userID(r), services.NewBudget{
		Limit:      limit,
		StartDate:  start,
		EndDate:    end,
		Categories: categories,
	})
	if msg, ok := validationMessage(err); ok {
		redirectWithFlash(w, r, auth.FlashDanger, msg, "/transactions")
		return
	}
	if err != nil {
		s.serverError(w, r, "Set budget failed", err, applog.ComponentBudget, applog.OpCreate)
		return
	}

	view, err := s.loadTransactionsView(r)
	if err != nil {
		s.serverError(w, r, "Load transactions failed", err, applog.ComponentLedger, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "transactions.html", "Transactions", view,
		auth.Flash{Category: string(res.Severity), Message: res.Notice})
}

func (s *Server) handleSetCategoryBudgetLimit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid request", "/transactions")
		return
	}
	limit, err := parseMoneyField(r.PostForm, "category_budget")
	if err != nil {
		redirectWithFlash(w, r, auth.FlashDanger, "Invalid category budget", "/transactions")
		return
	}

	err = s.finance.SetCategoryBudget(r.Context(), userID(r), formValue(r.PostForm, "category"), limit)
	if errors.Is(err, core.ErrNoBudget) {
		redirectWithFlash(w, r, auth.FlashDanger, "No overall budget set. Please set an overall budget first.", "/transactions")
		return
	}
	if msg, ok := validationMessage(err); ok {
		redirectWithFlash(w, r, auth.FlashDanger, msg, "/transactions")
		return
	}
	if err != nil {
		s.serverError(w, r, "Set category budget failed", err, applog.ComponentBudget, applog.OpUpdate)
		return
	}
	redirectWithFlash(w, r, auth.FlashSuccess, "Category-wise budget limit set successfully.", "/transactions")
}
