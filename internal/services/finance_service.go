package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Publisher announces ledger changes to the sync worker.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, userID int64, reason string) error
	Close() error
}

// Options tunes the overview cache and the clock.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Now       func() time.Time
}

// Overview is everything the dashboard, alerts and export pages read for one user.
// Values are shared between callers and must not be mutated.
type Overview struct {
	Transactions []core.Transaction
	Budget       *core.Budget
	Summary      core.Summary
}

// FinanceService orchestrates ledger operations across storage, the overview
// cache and AMQP.
type FinanceService struct {
	store     storage.Store
	publisher Publisher
	now       func() time.Time

	overviews *cache.LRUCache[int64, Overview]
	group     singleflight.Group

	// generation is bumped on every write so an in-flight load never caches
	// data older than the write.
	genMu      sync.Mutex
	generation map[int64]uint64
}

// NewFinanceService wires the service. publisher may be nil, in which case
// change notifications are skipped.
func NewFinanceService(store storage.Store, publisher Publisher, opts Options) *FinanceService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FinanceService{
		store:      store,
		publisher:  publisher,
		now:        opts.Now,
		overviews:  cache.NewLRUCache[int64, Overview](opts.CacheSize, opts.CacheTTL),
		generation: make(map[int64]uint64),
	}
}

// Cache exposes the overview cache for the cleanup manager and /metrics.
func (s *FinanceService) Cache() *cache.LRUCache[int64, Overview] {
	return s.overviews
}

// Ping checks the storage backend.
func (s *FinanceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Overview returns the user's transactions, latest budget and aggregate,
// serving from cache when possible.
func (s *FinanceService) Overview(ctx context.Context, userID int64) (Overview, error) {
	if ov, ok := s.overviews.Get(userID); ok {
		return ov, nil
	}

	// shared by every waiter; not bound to the first caller's cancellation
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		gen := s.currentGeneration(userID)
		ov, err := s.loadOverview(loadCtx, userID)
		if err != nil {
			return Overview{}, err
		}
		s.storeOverview(userID, gen, ov)
		return ov, nil
	})
	if err != nil {
		return Overview{}, err
	}
	return v.(Overview), nil
}

// Summary is the aggregate part of Overview.
func (s *FinanceService) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	return ov.Summary, nil
}

// Alerts evaluates the user's spending against the latest budget.
func (s *FinanceService) Alerts(ctx context.Context, userID int64) (core.AlertReport, error) {
	ov, err := s.Overview(ctx, userID)
	if err != nil {
		return core.AlertReport{}, err
	}
	return core.EvaluateAlerts(ov.Summary), nil
}

func (s *FinanceService) loadOverview(ctx context.Context, userID int64) (Overview, error) {
	var (
		txs    []core.Transaction
		budget *core.Budget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		txs = list
		return nil
	})
	g.Go(func() error {
		b, err := s.store.LatestBudget(gctx, userID)
		if errors.Is(err, core.ErrNoBudget) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("latest budget: %w", err)
		}
		budget = &b
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	return Overview{
		Transactions: txs,
		Budget:       budget,
		Summary:      core.Summarize(txs, budget),
	}, nil
}

func (s *FinanceService) currentGeneration(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation[userID]
}

func (s *FinanceService) storeOverview(userID int64, gen uint64, ov Overview) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generation[userID] != gen {
		return
	}
	s.overviews.Set(userID, ov)
}

func (s *FinanceService) invalidate(userID int64) {
	s.genMu.Lock()
	s.generation[userID]++
	s.genMu.Unlock()
	s.overviews.Delete(userID)
}

// changed drops the cached overview and notifies the worker. A failed publish
// is logged; the write already succeeded.
func (s *FinanceService) changed(ctx context.Context, userID int64, reason string) {
	s.invalidate(userID)

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping ledger change message",
			"user_id", userID, "reason", reason)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, userID, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change message",
			"user_id", userID, "reason", reason, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *FinanceService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close finance service: %w", errors.Join(errs...))
	}

	return nil
}
