package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

// categoryBudgetPrefix marks the per-category limit fields of the budget form.
const categoryBudgetPrefix = "category_budget_"

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formValue returns the sanitized value of key.
func formValue(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

// parseMoneyField parses a required decimal amount.
func parseMoneyField(form url.Values, key string) (core.Money, error) {
	m, err := core.ParseMoney(form.Get(key))
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

// parseOptionalDate parses a YYYY-MM-DD field. An empty field yields the zero date.
func parseOptionalDate(form url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

// parseCategoryBudgets collects category_budget_<name> fields. Blank values
// are skipped; the result is ordered by category name since form fields carry
// no order.
func parseCategoryBudgets(form url.Values) (core.CategoryLimits, error) {
	var names []string
	for key := range form {
		if name, ok := strings.CutPrefix(key, categoryBudgetPrefix); ok && sanitizeInput(name) != "" {
			names = append(names, key)
		}
	}
	slices.Sort(names)

	var limits core.CategoryLimits
	for _, key := range names {
		if strings.TrimSpace(form.Get(key)) == "" {
			continue
		}
		m, err := parseMoneyField(form, key)
		if err != nil {
			return nil, err
		}
		limits = limits.Set(sanitizeInput(strings.TrimPrefix(key, categoryBudgetPrefix)), m)
	}
	return limits, nil
}

// validationMessage maps input errors from the service layer to a notice.
func validationMessage(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required", true
	case errors.Is(err, core.ErrCategoryTooLong):
		return "Category is too long", true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount", true
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date", true
	default:
		return "", false
	}
}

// parseIDParam reads a positive integer URL parameter.
func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
