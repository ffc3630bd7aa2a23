package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *SQLiteRepository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	alice := mustUser(t, repo, "alice")
	if alice.ID == 0 || alice.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", alice)
	}

	if _, err := repo.CreateUser(ctx, "alice", "other"); !errors.Is(err, core.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := repo.GetUserByUsername(ctx, "alice")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUserByUsername = %+v, %v", got, err)
	}
	if _, err := repo.GetUserByUsername(ctx, "Alice"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different case, got %v", err)
	}
	if _, err := repo.GetUser(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mustUser(t, repo, "bob")
	users, err := repo.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("ListUsers = %v, %v", users, err)
	}
}

func TestSQLiteTransactionsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := mustUser(t, repo, "alice")
	bob := mustUser(t, repo, "bob")

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:   alice.ID,
		Category: "Food",
		Amount:   core.Money{Cents: 5000},
		Date:     core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.ID == 0 || tx.Date.String() != "2024-03-01" {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	if _, err := repo.GetTransaction(ctx, bob.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign lookup should be not found, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, bob.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}

	tx.Category = "Groceries"
	tx.Amount = core.Money{Cents: 5500}
	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, err := repo.GetTransaction(ctx, alice.ID, tx.ID)
	if err != nil || got.Category != "Groceries" || got.Amount.Cents != 5500 {
		t.Fatalf("GetTransaction = %+v, %v", got, err)
	}

	foreign := tx
	foreign.UserID = bob.ID
	if err := repo.UpdateTransaction(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update should be not found, got %v", err)
	}

	if err := repo.DeleteTransaction(ctx, alice.ID, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	list, err := repo.ListTransactions(ctx, alice.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("ListTransactions after delete = %v, %v", list, err)
	}
}

func TestSQLiteCreateTransactionsBulk(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := mustUser(t, repo, "alice")

	txs := []core.Transaction{
		{UserID: u.ID, Category: "Food", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1)},
		{UserID: u.ID, Category: "Rent", Amount: core.Money{Cents: 80000}, Date: core.NewDate(2024, 1, 2)},
	}
	n, err := repo.CreateTransactions(ctx, txs)
	if err != nil || n != 2 {
		t.Fatalf("CreateTransactions = %d, %v", n, err)
	}
	list, err := repo.ListTransactions(ctx, u.ID)
	if err != nil || len(list) != 2 || list[0].Category != "Food" || list[1].Category != "Rent" {
		t.Fatalf("ListTransactions = %+v, %v", list, err)
	}
}

func TestSQLiteLatestBudget(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := mustUser(t, repo, "alice")

	if _, err := repo.LatestBudget(ctx, u.ID); !errors.Is(err, core.ErrNoBudget) {
		t.Fatalf("expected ErrNoBudget, got %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	first, err := repo.CreateBudget(ctx, core.Budget{
		UserID:     u.ID,
		Limit:      core.Money{Cents: 50000},
		StartDate:  core.NewDate(2024, 1, 1),
		EndDate:    core.NewDate(2024, 1, 31),
		Categories: core.CategoryLimits{{Category: "Rent", Limit: core.Money{Cents: 30000}}, {Category: "Food", Limit: core.Money{Cents: 6000}}},
		CreatedAt:  base,
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	second, err := repo.CreateBudget(ctx, core.Budget{
		UserID:    u.ID,
		Limit:     core.Money{Cents: 70000},
		StartDate: core.NewDate(2024, 2, 1),
		EndDate:   core.NewDate(2024, 2, 29),
		CreatedAt: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	latest, err := repo.LatestBudget(ctx, u.ID)
	if err != nil || latest.ID != second.ID || latest.Limit.Cents != 70000 {
		t.Fatalf("LatestBudget = %+v, %v", latest, err)
	}
	if len(latest.Categories) != 0 {
		t.Fatalf("expected no categories, got %v", latest.Categories)
	}

	cats := latest.Categories.Set("Food", core.Money{Cents: 6000})
	if err := repo.UpdateBudgetCategories(ctx, u.ID, latest.ID, cats); err != nil {
		t.Fatalf("UpdateBudgetCategories: %v", err)
	}
	latest, _ = repo.LatestBudget(ctx, u.ID)
	if lim, ok := latest.Categories.Get("Food"); !ok || lim.Cents != 6000 {
		t.Fatalf("categories after update = %v", latest.Categories)
	}

	// The older budget keeps its own mapping and order.
	if first.Categories[0].Category != "Rent" || first.Categories[1].Category != "Food" {
		t.Fatalf("category order lost: %v", first.Categories)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := repo.GetUserByUsername(ctx, "alice"); err != nil {
		t.Fatalf("user lost after reopen: %v", err)
	}
}
