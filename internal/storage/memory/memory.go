// Package memory is a process-local storage.Store used by tests and by
// DATA_BACKEND=memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	nextID  int64
	users   []core.User
	txs     []core.Transaction
	budgets []core.Budget
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock replaces the timestamp source; used to make budget ordering deterministic in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return core.User{}, core.ErrUsernameTaken
		}
	}
	u := core.User{ID: s.id(), Username: username, PasswordHash: passwordHash, CreatedAt: s.now().UTC()}
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users), nil
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTx(tx), nil
}

func (s *Store) CreateTransactions(_ context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.insertTx(tx)
	}
	return len(txs), nil
}

func (s *Store) insertTx(tx core.Transaction) core.Transaction {
	tx.ID = s.id()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	s.txs = append(s.txs, tx)
	return tx
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findTx(userID, id); i >= 0 {
		return s.txs[i], nil
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTx(tx.UserID, tx.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	cur := &s.txs[i]
	cur.Category = tx.Category
	cur.Amount = tx.Amount
	cur.Date = tx.Date
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTx(userID, id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) findTx(userID, id int64) int {
	return slices.IndexFunc(s.txs, func(tx core.Transaction) bool {
		return tx.ID == id && tx.UserID == userID
	})
}

// Budgets

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	b.Categories = slices.Clone(b.Categories)
	s.budgets = append(s.budgets, b)
	return cloneBudget(b), nil
}

func (s *Store) LatestBudget(_ context.Context, userID int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.latest(userID)
	if i < 0 {
		return core.Budget{}, core.ErrNoBudget
	}
	return cloneBudget(s.budgets[i]), nil
}

func (s *Store) UpdateBudgetCategories(_ context.Context, userID, budgetID int64, categories core.CategoryLimits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.budgets {
		if s.budgets[i].ID == budgetID && s.budgets[i].UserID == userID {
			s.budgets[i].Categories = slices.Clone(categories)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) latest(userID int64) int {
	best := -1
	for i, b := range s.budgets {
		if b.UserID != userID {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := s.budgets[best]
		if b.CreatedAt.After(cur.CreatedAt) || (b.CreatedAt.Equal(cur.CreatedAt) && b.ID > cur.ID) {
			best = i
		}
	}
	return best
}

func cloneBudget(b core.Budget) core.Budget {
	b.Categories = slices.Clone(b.Categories)
	return b
}
