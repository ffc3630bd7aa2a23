package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

// NewTransaction is the user input for AddTransaction. A zero Date means today.
type NewTransaction struct {
	Category string
	Amount   core.Money
	Date     core.Date
}

// AddTransaction validates and stores a transaction for userID.
func (s *FinanceService) AddTransaction(ctx context.Context, userID int64, in NewTransaction) (core.Transaction, error) {
	date := in.Date
	if date.IsZero() {
		date = core.Date{Time: s.now()}.Day()
	}
	tx := core.Transaction{
		UserID:   userID,
		Category: strings.TrimSpace(in.Category),
		Amount:   in.Amount,
		Date:     date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", userID,
		"transaction_id", saved.ID,
		"category", saved.Category,
		"amount_cents", saved.Amount.Cents)

	s.changed(ctx, userID, amqp.ReasonTransactionCreated)
	return saved, nil
}

// GetTransaction returns a transaction owned by userID or core.ErrNotFound.
func (s *FinanceService) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// UpdateTransaction changes category and amount; the date is kept.
func (s *FinanceService) UpdateTransaction(ctx context.Context, userID, id int64, category string, amount core.Money) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	tx.Category = strings.TrimSpace(category)
	tx.Amount = amount
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		"user_id", userID,
		"transaction_id", id,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	s.changed(ctx, userID, amqp.ReasonTransactionUpdated)
	return tx, nil
}

// DeleteTransaction removes a transaction owned by userID.
func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "user_id", userID, "transaction_id", id)

	s.changed(ctx, userID, amqp.ReasonTransactionDeleted)
	return nil
}

// ListTransactions returns the user's transactions in insertion order.
func (s *FinanceService) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ov.Transactions, nil
}

// Categories returns the distinct category labels the user has recorded, sorted.
func (s *FinanceService) Categories(ctx context.Context, userID int64) ([]string, error) {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ov.Transactions))
	var out []string
	for _, tx := range ov.Transactions {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	slices.Sort(out)
	return out, nil
}

// NewBudget is the user input for SetBudget.
type NewBudget struct {
	Limit      core.Money
	StartDate  core.Date
	EndDate    core.Date
	Categories core.CategoryLimits
}

// BudgetResult is the stored budget plus the notice computed over its window.
type BudgetResult struct {
	Budget   core.Budget
	Severity core.Severity
	Notice   string
}

// SetBudget stores a new budget; it becomes the latest one. Previous budgets
// are kept untouched.
func (s *FinanceService) SetBudget(ctx context.Context, userID int64, in NewBudget) (BudgetResult, error) {
	b := core.Budget{
		UserID:     userID,
		Limit:      in.Limit,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Categories: in.Categories,
	}
	if err := b.Validate(); err != nil {
		return BudgetResult{}, fmt.Errorf("validate budget: %w", err)
	}

	saved, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return BudgetResult{}, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set",
		"user_id", userID,
		"budget_id", saved.ID,
		"amount_cents", saved.Limit.Cents,
		"categories", len(saved.Categories))

	s.changed(ctx, userID, amqp.ReasonBudgetSet)

	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return BudgetResult{}, fmt.Errorf("list transactions: %w", err)
	}
	sev, notice := core.EvaluateBudgetWindow(txs, saved)
	return BudgetResult{Budget: saved, Severity: sev, Notice: notice}, nil
}

// SetCategoryBudget sets one category limit on the latest budget. It returns
// core.ErrNoBudget, and changes nothing, when the user has no budget yet.
func (s *FinanceService) SetCategoryBudget(ctx context.Context, userID int64, category string, limit core.Money) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.ErrEmptyCategory
	}
	if err := limit.Validate(); err != nil {
		return err
	}

	b, err := s.store.LatestBudget(ctx, userID)
	if err != nil {
		return fmt.Errorf("latest budget: %w", err)
	}

	categories := b.Categories.Set(category, limit)
	if err := s.store.UpdateBudgetCategories(ctx, userID, b.ID, categories); err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}

	slog.InfoContext(ctx, "Category budget set",
		"user_id", userID,
		"budget_id", b.ID,
		"category", category,
		"amount_cents", limit.Cents)

	s.changed(ctx, userID, amqp.ReasonCategoryBudgetSet)
	return nil
}
