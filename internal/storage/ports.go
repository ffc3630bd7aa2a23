package storage

import (
	"context"

	"fintrack/internal/core"
)

// Ports implemented by the SQLite repository and the in-memory store.
// Lookups that find nothing return core.ErrNotFound; LatestBudget returns
// core.ErrNoBudget when the user never set one.
type (
	UserStore interface {
		CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// CreateTransactions inserts all rows or none.
		CreateTransactions(ctx context.Context, txs []core.Transaction) (int, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id int64) error
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		LatestBudget(ctx context.Context, userID int64) (core.Budget, error)
		UpdateBudgetCategories(ctx context.Context, userID, budgetID int64, categories core.CategoryLimits) error
	}

	Store interface {
		UserStore
		TransactionStore
		BudgetStore
		Ping(ctx context.Context) error
		Close() error
	}
)
