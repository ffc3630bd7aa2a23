package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type categoryRow struct {
	Name     string
	Spent    core.Money
	Limit    core.Money
	HasLimit bool
	Width    int // share of total spending, percent
	Class    string
}

type dashboardView struct {
	Summary    core.Summary
	Records    []core.Transaction
	Categories []categoryRow
	UsedWidth  int // overall spend against the limit, capped at 100
	Class      string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ov, err := s.finance.Overview(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, r, "Load dashboard failed", err, applog.ComponentLedger, applog.OpRead)
		return
	}
	sum := ov.Summary

	view := dashboardView{
		Summary:   sum,
		Records:   ov.Transactions,
		UsedWidth: barWidth(sum.TotalSpent, sum.BudgetLimit),
		Class:     core.Classify(sum.TotalSpent, sum.BudgetLimit).CSSClass(),
	}
	for _, c := range sum.CategorySpending {
		row := categoryRow{
			Name:  c.Name,
			Spent: c.Amount,
			Width: barWidth(c.Amount, sum.TotalSpent),
		}
		if limit, ok := sum.CategoryBudgets.Get(c.Name); ok {
			row.Limit, row.HasLimit = limit, true
			row.Class = core.Classify(c.Amount, limit).CSSClass()
		}
		view.Categories = append(view.Categories, row)
	}

	s.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", view)
}

// barWidth returns part as a rounded percentage of whole, clamped to 0..100.
func barWidth(part, whole core.Money) int {
	if whole.Cents <= 0 || part.Cents <= 0 {
		return 0
	}
	width := int((part.Cents*100 + whole.Cents/2) / whole.Cents)
	if width < 2 { // keep very small values visible
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

type dashboardData struct {
	BudgetLimit      float64             `json:"budget_limit"`
	TotalSpent       float64             `json:"total_spent"`
	CategorySpending core.CategoryLimits `json:"category_spending"`
	CategoryBudgets  core.CategoryLimits `json:"category_budgets"`
}

func (s *Server) handleDashboardData(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary(r)
	if err != nil {
		s.serverError(w, r, "Load dashboard data failed", err, applog.ComponentLedger, applog.OpRead)
		return
	}

	// CategoryLimits keeps first-seen order when encoded, so spending reuses it.
	spending := make(core.CategoryLimits, 0, len(sum.CategorySpending))
	for _, c := range sum.CategorySpending {
		spending = append(spending, core.CategoryLimit{Category: c.Name, Limit: c.Amount})
	}

	writeJSON(w, http.StatusOK, dashboardData{
		BudgetLimit:      sum.BudgetLimit.Units(),
		TotalSpent:       sum.TotalSpent.Units(),
		CategorySpending: spending,
		CategoryBudgets:  sum.CategoryBudgets,
	})
}

func (s *Server) summary(r *http.Request) (core.Summary, error) {
	ov, err := s.finance.Overview(r.Context(), userID(r))
	if err != nil {
		return core.Summary{}, err
	}
	return ov.Summary, nil
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := s.finance.Alerts(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, r, "Evaluate alerts failed", err, applog.ComponentBudget, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "alerts.html", "Budget alerts", report)
}
