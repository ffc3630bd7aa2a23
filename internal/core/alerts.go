package core

import (
	"fmt"
	"math"
)

// Severity classifies spend against a limit.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Rank orders severities so that success < warning < danger.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityDanger:
		return 2
	default:
		return 0
	}
}

// CSSClass is the alert class used by templates.
func (s Severity) CSSClass() string {
	return "alert-" + string(s)
}

// Alert is a severity-tagged status message. Category is empty for the overall alert.
type Alert struct {
	Severity Severity
	Message  string
	Category string
}

// CategoryAnalysis describes spend against one category limit.
type CategoryAnalysis struct {
	Category   string
	Spent      Money
	Budget     Money
	Percentage float64
}

// AlertReport is the ordered output of EvaluateAlerts.
type AlertReport struct {
	Alerts           []Alert
	CategoryAnalysis []CategoryAnalysis
}

const noBudgetMessage = "No budget set."

// Classify returns danger when spent reaches limit, warning from 90% of limit
// and success below that. The 90% test runs on cents so the boundary is exact:
// spent*10 >= limit*9 rewritten as spent >= limit - floor(limit/10).
func Classify(spent, limit Money) Severity {
	switch {
	case spent.Cents >= limit.Cents:
		return SeverityDanger
	case spent.Cents >= limit.Cents-limit.Cents/10:
		return SeverityWarning
	default:
		return SeveritySuccess
	}
}

// Percentage returns spent as a percentage of limit rounded to two decimals,
// or 0 when the limit is not positive.
func Percentage(spent, limit Money) float64 {
	if limit.Cents <= 0 {
		return 0
	}
	p := float64(spent.Cents) / float64(limit.Cents) * 100
	return math.Round(p*100) / 100
}

// EvaluateAlerts produces the overall alert followed by one alert per budgeted
// category in the budget's order.
func EvaluateAlerts(s Summary) AlertReport {
	if !s.HasBudget {
		return AlertReport{
			Alerts: []Alert{{Severity: SeveritySuccess, Message: noBudgetMessage}},
		}
	}

	report := AlertReport{
		Alerts: make([]Alert, 0, len(s.CategoryBudgets)+1),
	}
	sev := Classify(s.TotalSpent, s.BudgetLimit)
	report.Alerts = append(report.Alerts, Alert{Severity: sev, Message: overallMessage(sev)})

	for _, cl := range s.CategoryBudgets {
		spent := s.SpentFor(cl.Category)
		report.CategoryAnalysis = append(report.CategoryAnalysis, CategoryAnalysis{
			Category:   cl.Category,
			Spent:      spent,
			Budget:     cl.Limit,
			Percentage: Percentage(spent, cl.Limit),
		})
		sev := Classify(spent, cl.Limit)
		report.Alerts = append(report.Alerts, Alert{
			Severity: sev,
			Message:  categoryMessage(sev, cl.Category),
			Category: cl.Category,
		})
	}
	return report
}

// Worst returns the highest severity in the report.
func (r AlertReport) Worst() Severity {
	worst := SeveritySuccess
	for _, a := range r.Alerts {
		if a.Severity.Rank() > worst.Rank() {
			worst = a.Severity
		}
	}
	return worst
}

// EvaluateBudgetWindow checks a freshly created budget against the
// transactions dated inside its window and returns the notice to show.
func EvaluateBudgetWindow(txs []Transaction, b Budget) (Severity, string) {
	var total Money
	for _, tx := range txs {
		if b.Contains(tx.Date) {
			total = total.Add(tx.Amount)
		}
	}
	sev := Classify(total, b.Limit)
	if sev == SeveritySuccess {
		return sev, "Budget limit set successfully."
	}
	return sev, overallMessage(sev)
}

func overallMessage(sev Severity) string {
	switch sev {
	case SeverityDanger:
		return "You have exceeded your budget limit!"
	case SeverityWarning:
		return "You are about to reach your budget limit!"
	default:
		return "You are within your budget limit."
	}
}

func categoryMessage(sev Severity, category string) string {
	switch sev {
	case SeverityDanger:
		return fmt.Sprintf("You have exceeded your budget limit for %s!", category)
	case SeverityWarning:
		return fmt.Sprintf("You are about to reach your budget limit for %s!", category)
	default:
		return fmt.Sprintf("You are within your budget limit for %s.", category)
	}
}
