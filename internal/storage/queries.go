package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the SQL statements used by the repository.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row models

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    int64
}

type Transaction struct {
	ID          int64
	UserID      int64
	Category    string
	AmountCents int64
	Date        string
	CreatedAt   int64
}

type Budget struct {
	ID              int64
	UserID          int64
	LimitCents      int64
	StartDate       string
	EndDate         string
	CategoryBudgets string
	CreatedAt       int64
}

// Users

const createUser = `INSERT INTO users (username, password_hash, created_at)
VALUES (?, ?, ?)
RETURNING id, username, password_hash, created_at`

type CreateUserParams struct {
	Username     string
	PasswordHash string
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.PasswordHash, arg.CreatedAt)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByUsername = `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUser = `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const listUsers = `SELECT id, username, password_hash, created_at FROM users ORDER BY id`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Transactions

const createTransaction = `INSERT INTO transactions (user_id, category, amount_cents, date, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, category, amount_cents, date, created_at`

type CreateTransactionParams struct {
	UserID      int64
	Category    string
	AmountCents int64
	Date        string
	CreatedAt   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.Category, arg.AmountCents, arg.Date, arg.CreatedAt)
	var i Transaction
	err := row.Scan(&i.ID, &i.UserID, &i.Category, &i.AmountCents, &i.Date, &i.CreatedAt)
	return i, err
}

const getTransaction = `SELECT id, user_id, category, amount_cents, date, created_at
FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, userID int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id, userID)
	var i Transaction
	err := row.Scan(&i.ID, &i.UserID, &i.Category, &i.AmountCents, &i.Date, &i.CreatedAt)
	return i, err
}

const listTransactionsByUser = `SELECT id, user_id, category, amount_cents, date, created_at
FROM transactions WHERE user_id = ? ORDER BY id`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Category, &i.AmountCents, &i.Date, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTransaction = `UPDATE transactions SET category = ?, amount_cents = ?, date = ?
WHERE id = ? AND user_id = ?`

type UpdateTransactionParams struct {
	Category    string
	AmountCents int64
	Date        string
	ID          int64
	UserID      int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Category, arg.AmountCents, arg.Date, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Budgets

const createBudget = `INSERT INTO budgets (user_id, limit_cents, start_date, end_date, category_budgets, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, user_id, limit_cents, start_date, end_date, category_budgets, created_at`

type CreateBudgetParams struct {
	UserID          int64
	LimitCents      int64
	StartDate       string
	EndDate         string
	CategoryBudgets string
	CreatedAt       int64
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget,
		arg.UserID, arg.LimitCents, arg.StartDate, arg.EndDate, arg.CategoryBudgets, arg.CreatedAt)
	var i Budget
	err := row.Scan(&i.ID, &i.UserID, &i.LimitCents, &i.StartDate, &i.EndDate, &i.CategoryBudgets, &i.CreatedAt)
	return i, err
}

const getLatestBudget = `SELECT id, user_id, limit_cents, start_date, end_date, category_budgets, created_at
FROM budgets WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`

func (q *Queries) GetLatestBudget(ctx context.Context, userID int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getLatestBudget, userID)
	var i Budget
	err := row.Scan(&i.ID, &i.UserID, &i.LimitCents, &i.StartDate, &i.EndDate, &i.CategoryBudgets, &i.CreatedAt)
	return i, err
}

const updateBudgetCategories = `UPDATE budgets SET category_budgets = ? WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateBudgetCategories(ctx context.Context, categoryBudgets string, id, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBudgetCategories, categoryBudgets, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
