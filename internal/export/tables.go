// Package export renders a user's ledger as PDF, XLSX and CSV documents and
// projects the spreadsheet tables mirrored to Google Sheets.
package export

import "fintrack/internal/core"

// Table names shared by the XLSX workbook and the Sheets mirror.
const (
	TransactionsTable   = "Transactions"
	OverallBudgetTable  = "Overall Budget"
	CategoryBudgetTable = "Category-wise Budget"
)

var transactionHeader = []string{"Date", "Category", "Amount"}

// Table is a named header plus rows of cell values.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Tables projects txs and s into the three spreadsheet tables. The category
// table lists only categories present in the budget mapping, in its order.
func Tables(txs []core.Transaction, s core.Summary) []Table {
	transactions := Table{Name: TransactionsTable, Header: transactionHeader}
	for _, tx := range txs {
		transactions.Rows = append(transactions.Rows, []any{tx.Date.String(), tx.Category, tx.Amount.Units()})
	}

	overall := Table{
		Name:   OverallBudgetTable,
		Header: []string{"Overall Budget Limit", "Total Spent"},
		Rows:   [][]any{{s.BudgetLimit.Units(), s.TotalSpent.Units()}},
	}

	categories := Table{
		Name:   CategoryBudgetTable,
		Header: []string{"Category", "Budget Limit", "Spent", "Remaining"},
	}
	for _, cl := range s.CategoryBudgets {
		spent := s.SpentFor(cl.Category)
		categories.Rows = append(categories.Rows, []any{
			cl.Category,
			cl.Limit.Units(),
			spent.Units(),
			cl.Limit.Sub(spent).Units(),
		})
	}

	return []Table{transactions, overall, categories}
}

// Values flattens the table into header plus rows.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	out = append(out, header)
	return append(out, t.Rows...)
}
