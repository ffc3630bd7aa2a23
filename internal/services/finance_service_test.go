package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/storage/memory"
)

type publishCall struct {
	userID int64
	reason string
}

type fakePublisher struct {
	mu     sync.Mutex
	calls  []publishCall
	err    error
	closed bool
}

func (p *fakePublisher) PublishLedgerChanged(_ context.Context, userID int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{userID, reason})
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) reasons() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.calls {
		out = append(out, c.reason)
	}
	return out
}

// countingStore counts list calls to observe cache hits.
type countingStore struct {
	*memory.Store
	lists atomic.Int64
}

func (s *countingStore) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	s.lists.Add(1)
	return s.Store.ListTransactions(ctx, userID)
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*FinanceService, *countingStore, *fakePublisher) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	pub := &fakePublisher{}
	svc := NewFinanceService(store, pub, Options{Now: func() time.Time { return fixedNow }})
	return svc, store, pub
}

func cents(c int64) core.Money { return core.Money{Cents: c} }

func mustRegister(t *testing.T, svc *FinanceService, name string) core.User {
	t.Helper()
	u, err := svc.Register(context.Background(), name, "secret")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "alice")
	if u.PasswordHash == "secret" {
		t.Fatal("password stored in plaintext")
	}

	if _, err := svc.Register(ctx, "alice", "other"); !errors.Is(err, core.ErrUsernameTaken) {
		t.Errorf("duplicate register error = %v, want ErrUsernameTaken", err)
	}
	if _, err := svc.Register(ctx, "  ", "x"); !errors.Is(err, core.ErrEmptyUsername) {
		t.Errorf("empty username error = %v", err)
	}
	if _, err := svc.Register(ctx, strings.Repeat("u", core.MaxUsernameLength+1), "x"); !errors.Is(err, core.ErrUsernameTooLong) {
		t.Errorf("long username err = %v", err)
	}
	if _, err := svc.Register(ctx, strings.Repeat("é", core.MaxUsernameLength), "x"); err != nil {
		t.Errorf("150-character username err = %v", err)
	}
	if _, err := svc.Register(ctx, "carol", strings.Repeat("p", core.MaxPasswordBytes+1)); !errors.Is(err, core.ErrPasswordTooLong) {
		t.Errorf("long password err = %v", err)
	}
	if _, err := svc.Register(ctx, "bob", ""); !errors.Is(err, core.ErrEmptyPassword) {
		t.Errorf("empty password error = %v", err)
	}

	got, err := svc.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, u.ID)
	}

	for _, tc := range []struct{ user, pass string }{
		{"alice", "wrong"},
		{"nobody", "secret"},
	} {
		if _, err := svc.Authenticate(ctx, tc.user, tc.pass); !errors.Is(err, core.ErrInvalidCredentials) {
			t.Errorf("Authenticate(%q, %q) error = %v, want ErrInvalidCredentials", tc.user, tc.pass, err)
		}
	}
}

func TestAddTransactionDefaultsDateAndPublishes(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")

	tx, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: " Food ", Amount: cents(1250)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.ID == 0 {
		t.Error("expected id to be assigned")
	}
	if tx.Category != "Food" {
		t.Errorf("category = %q, want trimmed", tx.Category)
	}
	if got := tx.Date.String(); got != "2024-03-15" {
		t.Errorf("date = %s, want today", got)
	}
	if got := pub.reasons(); len(got) != 1 || got[0] != amqp.ReasonTransactionCreated {
		t.Errorf("published = %v", got)
	}

	if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: "", Amount: cents(1)}); !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("empty category error = %v", err)
	}
	if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: "Food", Amount: cents(-1)}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative amount error = %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, _, pub := newTestService(t)
	pub.err = errors.New("broker down")
	u := mustRegister(t, svc, "alice")

	if _, err := svc.AddTransaction(context.Background(), u.ID, NewTransaction{Category: "Food", Amount: cents(100)}); err != nil {
		t.Fatalf("add should succeed despite publish error: %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	svc := NewFinanceService(memory.New(), nil, Options{})
	u := mustRegister(t, svc, "alice")
	if _, err := svc.AddTransaction(context.Background(), u.ID, NewTransaction{Category: "Food", Amount: cents(100)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestUpdateAndDeleteScopedToOwner(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	alice := mustRegister(t, svc, "alice")
	bob := mustRegister(t, svc, "bob")

	tx, err := svc.AddTransaction(ctx, alice.ID, NewTransaction{Category: "Food", Amount: cents(500), Date: core.NewDate(2024, 1, 2)})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateTransaction(ctx, bob.ID, tx.ID, "Rent", cents(1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteTransaction(ctx, bob.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}

	updated, err := svc.UpdateTransaction(ctx, alice.ID, tx.ID, "Rent", cents(900))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Category != "Rent" || updated.Amount.Cents != 900 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Date.String() != "2024-01-02" {
		t.Errorf("update changed the date to %s", updated.Date)
	}

	if err := svc.DeleteTransaction(ctx, alice.ID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetTransaction(ctx, alice.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get after delete error = %v", err)
	}

	want := []string{amqp.ReasonTransactionCreated, amqp.ReasonTransactionUpdated, amqp.ReasonTransactionDeleted}
	got := pub.reasons()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("published = %v, want %v", got, want)
	}
}

func TestOverviewIsCachedAndInvalidatedOnWrite(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")

	if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: "Food", Amount: cents(100)}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Overview(ctx, u.ID); err != nil {
			t.Fatal(err)
		}
	}
	if n := store.lists.Load(); n != 1 {
		t.Errorf("list calls after three reads = %d, want 1", n)
	}

	if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: "Rent", Amount: cents(200)}); err != nil {
		t.Fatal(err)
	}
	s, err := svc.Summary(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalSpent.Cents != 300 {
		t.Errorf("total after write = %d, want 300", s.TotalSpent.Cents)
	}
	if n := store.lists.Load(); n != 2 {
		t.Errorf("list calls = %d, want 2", n)
	}
}

func TestConcurrentOverviewLoads(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")
	if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: "Food", Amount: cents(100)}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ov, err := svc.Overview(ctx, u.ID)
			if err != nil {
				errs <- err
				return
			}
			if ov.Summary.TotalSpent.Cents != 100 {
				errs <- errors.New("wrong total")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// gatedStore holds ListTransactions until release is closed once armed, then
// fails with the caller's context error if that context is done.
type gatedStore struct {
	*memory.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	if s.armed.Load() {
		s.entered <- struct{}{}
		<-s.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return s.Store.ListTransactions(ctx, userID)
}

func TestOverviewSurvivesFirstCallerCancel(t *testing.T) {
	store := &gatedStore{Store: memory.New(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewFinanceService(store, nil, Options{Now: func() time.Time { return fixedNow }})
	u := mustRegister(t, svc, "alice")
	if _, err := svc.AddTransaction(context.Background(), u.ID, NewTransaction{Category: "Food", Amount: cents(100)}); err != nil {
		t.Fatal(err)
	}
	store.armed.Store(true)

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.Overview(firstCtx, u.ID)
		first <- err
	}()
	<-store.entered

	second := make(chan error, 1)
	go func() {
		ov, err := svc.Overview(context.Background(), u.ID)
		if err == nil && ov.Summary.TotalSpent.Cents != 100 {
			err = errors.New("wrong total")
		}
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(store.release)

	for name, ch := range map[string]chan error{"first": first, "second": second} {
		select {
		case err := <-ch:
			if err != nil {
				t.Errorf("%s caller: %v", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s caller did not return", name)
		}
	}
}

func TestSetBudgetNotices(t *testing.T) {
	tests := []struct {
		name   string
		limit  int64
		spent  int64
		outDay core.Date
		want   core.Severity
		notice string
	}{
		{"under", 10000, 5000, core.NewDate(2024, 5, 1), core.SeveritySuccess, "Budget limit set successfully."},
		{"warning", 10000, 9000, core.NewDate(2024, 5, 1), core.SeverityWarning, "You are about to reach your budget limit!"},
		{"exceeded", 10000, 10000, core.NewDate(2024, 5, 1), core.SeverityDanger, "You have exceeded your budget limit!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			ctx := context.Background()
			u := mustRegister(t, svc, "alice")

			in := []NewTransaction{
				{Category: "Food", Amount: cents(tt.spent), Date: core.NewDate(2024, 3, 10)},
				// outside the window, must not count
				{Category: "Food", Amount: cents(50000), Date: tt.outDay},
			}
			for _, tx := range in {
				if _, err := svc.AddTransaction(ctx, u.ID, tx); err != nil {
					t.Fatal(err)
				}
			}

			res, err := svc.SetBudget(ctx, u.ID, NewBudget{
				Limit:     cents(tt.limit),
				StartDate: core.NewDate(2024, 3, 1),
				EndDate:   core.NewDate(2024, 3, 31),
			})
			if err != nil {
				t.Fatalf("set budget: %v", err)
			}
			if res.Severity != tt.want || res.Notice != tt.notice {
				t.Errorf("got (%s, %q), want (%s, %q)", res.Severity, res.Notice, tt.want, tt.notice)
			}
		})
	}
}

func TestSetBudgetReplacesLatest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")

	window := NewBudget{StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 12, 31)}

	first := window
	first.Limit = cents(10000)
	first.Categories = core.CategoryLimits{{Category: "Food", Limit: cents(3000)}}
	if _, err := svc.SetBudget(ctx, u.ID, first); err != nil {
		t.Fatal(err)
	}
	s, err := svc.Summary(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.BudgetLimit.Cents != 10000 || len(s.CategoryBudgets) != 1 {
		t.Fatalf("summary after first budget = %+v", s)
	}

	second := window
	second.Limit = cents(20000)
	if _, err := svc.SetBudget(ctx, u.ID, second); err != nil {
		t.Fatal(err)
	}
	s, err = svc.Summary(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.BudgetLimit.Cents != 20000 {
		t.Errorf("limit = %d, want latest budget 20000", s.BudgetLimit.Cents)
	}
	if len(s.CategoryBudgets) != 0 {
		t.Errorf("category budgets = %v, want those of the latest budget", s.CategoryBudgets)
	}
}

func TestSetCategoryBudget(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")

	err := svc.SetCategoryBudget(ctx, u.ID, "Food", cents(5000))
	if !errors.Is(err, core.ErrNoBudget) {
		t.Fatalf("without budget error = %v, want ErrNoBudget", err)
	}
	if len(pub.reasons()) != 0 {
		t.Errorf("published without a change: %v", pub.reasons())
	}

	if _, err := svc.SetBudget(ctx, u.ID, NewBudget{
		Limit:      cents(10000),
		StartDate:  core.NewDate(2024, 1, 1),
		EndDate:    core.NewDate(2024, 1, 31),
		Categories: core.CategoryLimits{{Category: "Rent", Limit: cents(4000)}, {Category: "Food", Limit: cents(1000)}},
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetCategoryBudget(ctx, u.ID, "Food", cents(2500)); err != nil {
		t.Fatalf("set category: %v", err)
	}
	if err := svc.SetCategoryBudget(ctx, u.ID, "Fun", cents(700)); err != nil {
		t.Fatalf("set category: %v", err)
	}

	b, err := store.LatestBudget(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := core.CategoryLimits{
		{Category: "Rent", Limit: cents(4000)},
		{Category: "Food", Limit: cents(2500)},
		{Category: "Fun", Limit: cents(700)},
	}
	if len(b.Categories) != len(want) {
		t.Fatalf("categories = %v, want %v", b.Categories, want)
	}
	for i := range want {
		if b.Categories[i] != want[i] {
			t.Errorf("categories[%d] = %v, want %v", i, b.Categories[i], want[i])
		}
	}
	if b.Limit.Cents != 10000 {
		t.Errorf("overall limit changed to %d", b.Limit.Cents)
	}
}

func TestAlertsScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")

	report, err := svc.Alerts(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Alerts) != 1 || report.Alerts[0].Message != "No budget set." {
		t.Errorf("no-budget alerts = %+v", report.Alerts)
	}

	for _, tx := range []NewTransaction{
		{Category: "Food", Amount: cents(9500)},
		{Category: "Rent", Amount: cents(1000)},
	} {
		if _, err := svc.AddTransaction(ctx, u.ID, tx); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.SetBudget(ctx, u.ID, NewBudget{
		Limit:      cents(10000),
		StartDate:  core.NewDate(2024, 3, 1),
		EndDate:    core.NewDate(2024, 3, 31),
		Categories: core.CategoryLimits{{Category: "Food", Limit: cents(10000)}},
	}); err != nil {
		t.Fatal(err)
	}

	report, err = svc.Alerts(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report.Worst() != core.SeverityDanger {
		t.Errorf("worst = %s, want danger", report.Worst())
	}
	if len(report.Alerts) != 2 {
		t.Fatalf("alerts = %+v", report.Alerts)
	}
	if report.Alerts[1].Severity != core.SeverityWarning {
		t.Errorf("food alert = %+v, want warning", report.Alerts[1])
	}
}

func TestCategoriesSortedAndDistinct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")
	for _, c := range []string{"Rent", "Food", "Rent", "Bills"} {
		if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: c, Amount: cents(1)}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.Categories(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "Bills,Food,Rent" {
		t.Errorf("categories = %v", got)
	}
}

func TestImportDataset(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")

	data := "date,category,amount\n2024-01-01,Food,12.50\n2024-01-02,Rent,800\n"
	n, err := svc.ImportDataset(ctx, u.ID, strings.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d rows, want 2", n)
	}
	txs, err := svc.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 || txs[0].UserID != u.ID || txs[0].Amount.Cents != 1250 {
		t.Errorf("transactions = %+v", txs)
	}
	if got := pub.reasons(); len(got) != 1 || got[0] != amqp.ReasonDatasetLoaded {
		t.Errorf("published = %v", got)
	}

	bad := "date,category,amount\n2024-01-01,Food,abc\n"
	if _, err := svc.ImportDataset(ctx, u.ID, strings.NewReader(bad)); err == nil {
		t.Error("expected error for malformed amount")
	}
	txs, _ = svc.ListTransactions(ctx, u.ID)
	if len(txs) != 2 {
		t.Errorf("malformed dataset stored rows: %d", len(txs))
	}
}

func TestExports(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	u := mustRegister(t, svc, "alice")
	if _, err := svc.AddTransaction(ctx, u.ID, NewTransaction{Category: "Food", Amount: cents(1250), Date: core.NewDate(2024, 1, 5)}); err != nil {
		t.Fatal(err)
	}

	var csvBuf bytes.Buffer
	if err := svc.ExportCSV(ctx, u.ID, &csvBuf); err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !strings.Contains(csvBuf.String(), "2024-01-05,Food,12.50") {
		t.Errorf("csv = %q", csvBuf.String())
	}

	var pdfBuf bytes.Buffer
	if err := svc.ExportPDF(ctx, u.ID, &pdfBuf); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(pdfBuf.Bytes(), []byte("%PDF")) {
		t.Error("pdf output does not start with %PDF")
	}

	var xlsxBuf bytes.Buffer
	if err := svc.ExportXLSX(ctx, u.ID, &xlsxBuf); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	if !bytes.HasPrefix(xlsxBuf.Bytes(), []byte("PK")) {
		t.Error("xlsx output is not a zip archive")
	}

	tables, err := svc.Tables(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 3 || tables[0].Name != export.TransactionsTable {
		t.Errorf("tables = %+v", tables)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	svc, _, pub := newTestService(t)
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if !pub.closed {
		t.Error("publisher not closed")
	}
}
