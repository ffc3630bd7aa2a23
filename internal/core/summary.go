package core

// DefaultBudgetLimit applies when a user has never set a budget.
var DefaultBudgetLimit = Money{Cents: 60000}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is the aggregate view of a user's transactions against the latest budget.
type Summary struct {
	TotalSpent       Money
	CategorySpending []CategoryAmount // first-seen order
	CategoryBudgets  CategoryLimits
	BudgetLimit      Money
	HasBudget        bool
}

// Summarize totals txs overall and per category. A nil budget yields the
// default limit and no category limits.
func Summarize(txs []Transaction, budget *Budget) Summary {
	s := Summary{
		BudgetLimit:     DefaultBudgetLimit,
		CategoryBudgets: CategoryLimits{},
	}
	if budget != nil {
		s.HasBudget = true
		s.BudgetLimit = budget.Limit
		if budget.Categories != nil {
			s.CategoryBudgets = append(CategoryLimits{}, budget.Categories...)
		}
	}

	index := make(map[string]int)
	for _, tx := range txs {
		s.TotalSpent = s.TotalSpent.Add(tx.Amount)
		if i, ok := index[tx.Category]; ok {
			s.CategorySpending[i].Amount = s.CategorySpending[i].Amount.Add(tx.Amount)
			continue
		}
		index[tx.Category] = len(s.CategorySpending)
		s.CategorySpending = append(s.CategorySpending, CategoryAmount{Name: tx.Category, Amount: tx.Amount})
	}
	return s
}

// SpentFor returns the total spent in category, zero when nothing was recorded.
func (s Summary) SpentFor(category string) Money {
	for _, c := range s.CategorySpending {
		if c.Name == category {
			return c.Amount
		}
	}
	return Money{}
}

// Categories returns the distinct category labels in first-seen order.
func (s Summary) Categories() []string {
	out := make([]string, 0, len(s.CategorySpending))
	for _, c := range s.CategorySpending {
		out = append(out, c.Name)
	}
	return out
}
