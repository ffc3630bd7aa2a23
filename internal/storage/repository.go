package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UnixNano(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, notFound(err, "get user by username")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "get user")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.User, len(rows))
	for i, u := range rows {
		out[i] = toCoreUser(u)
	}
	return out, nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, r.createTransactionParams(tx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", row.UserID,
		"category", row.Category,
		"amount_cents", row.AmountCents)

	return toCoreTransaction(row)
}

func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	q := r.queries.WithTx(dbtx)
	for i, tx := range txs {
		if _, err := q.CreateTransaction(ctx, r.createTransactionParams(tx)); err != nil {
			return 0, fmt.Errorf("create transaction %d: %w", i, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(txs), nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, notFound(err, "get transaction")
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Category:    tx.Category,
		AmountCents: tx.Amount.Cents,
		Date:        tx.Date.String(),
		ID:          tx.ID,
		UserID:      tx.UserID,
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	cats, err := encodeCategories(b.Categories)
	if err != nil {
		return core.Budget{}, err
	}
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	row, err := r.queries.CreateBudget(ctx, CreateBudgetParams{
		UserID:          b.UserID,
		LimitCents:      b.Limit.Cents,
		StartDate:       b.StartDate.String(),
		EndDate:         b.EndDate.String(),
		CategoryBudgets: cats,
		CreatedAt:       createdAt.UnixNano(),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) LatestBudget(ctx context.Context, userID int64) (core.Budget, error) {
	row, err := r.queries.GetLatestBudget(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNoBudget
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get latest budget: %w", err)
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) UpdateBudgetCategories(ctx context.Context, userID, budgetID int64, categories core.CategoryLimits) error {
	cats, err := encodeCategories(categories)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateBudgetCategories(ctx, cats, budgetID, userID)
	if err != nil {
		return fmt.Errorf("update budget categories: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) createTransactionParams(tx core.Transaction) CreateTransactionParams {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	return CreateTransactionParams{
		UserID:      tx.UserID,
		Category:    tx.Category,
		AmountCents: tx.Amount.Cents,
		Date:        tx.Date.String(),
		CreatedAt:   createdAt.UnixNano(),
	}
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    time.Unix(0, u.CreatedAt).UTC(),
	}
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:        row.ID,
		UserID:    row.UserID,
		Category:  row.Category,
		Amount:    core.Money{Cents: row.AmountCents},
		Date:      date,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}, nil
}

func toCoreBudget(row Budget) (core.Budget, error) {
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d start: %w", row.ID, err)
	}
	end, err := core.ParseDate(row.EndDate)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d end: %w", row.ID, err)
	}
	var cats core.CategoryLimits
	if err := json.Unmarshal([]byte(row.CategoryBudgets), &cats); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d categories: %w", row.ID, err)
	}
	return core.Budget{
		ID:         row.ID,
		UserID:     row.UserID,
		Limit:      core.Money{Cents: row.LimitCents},
		StartDate:  start,
		EndDate:    end,
		Categories: cats,
		CreatedAt:  time.Unix(0, row.CreatedAt).UTC(),
	}, nil
}

func encodeCategories(cats core.CategoryLimits) (string, error) {
	b, err := json.Marshal(cats)
	if err != nil {
		return "", fmt.Errorf("encode category budgets: %w", err)
	}
	return string(b), nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
