package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Consumer delivers ledger change notifications.
type Consumer interface {
	ConsumeLedgerChanges(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error
}

// SyncWorker mirrors each user's ledger tables to a spreadsheet.
type SyncWorker struct {
	storage storage.Store
	sheets  sheets.TableWriter
}

func NewSyncWorker(storage storage.Store, sheets sheets.TableWriter) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		sheets:  sheets,
	}
}

// HandleLedgerChanged processes a single ledger change message from AMQP.
// Messages for users that no longer exist are dropped.
func (w *SyncWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"user_id", msg.UserID,
		"reason", msg.Reason)

	err := w.SyncUser(ctx, msg.UserID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Ledger change for unknown user, dropping", "user_id", msg.UserID)
		return nil
	}
	return err
}

// SyncUser rewrites the user's transactions, overall and category budget tabs.
func (w *SyncWorker) SyncUser(ctx context.Context, userID int64) error {
	u, err := w.storage.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", userID, err)
	}

	txs, err := w.storage.ListTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	var budget *core.Budget
	b, err := w.storage.LatestBudget(ctx, userID)
	switch {
	case err == nil:
		budget = &b
	case !errors.Is(err, core.ErrNoBudget):
		return fmt.Errorf("latest budget: %w", err)
	}

	tables := export.Tables(txs, core.Summarize(txs, budget))
	if err := w.sheets.WriteTables(ctx, u.Username, tables); err != nil {
		return fmt.Errorf("write tables: %w", err)
	}

	slog.InfoContext(ctx, "Synced ledger to Google Sheets",
		"user_id", userID,
		"username", u.Username,
		"rows", len(txs))
	return nil
}

// SyncAll mirrors every user. It keeps going after a failure and returns
// all failures joined.
func (w *SyncWorker) SyncAll(ctx context.Context) error {
	users, err := w.storage.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, u := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.SyncUser(ctx, u.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync user", "user_id", u.ID, "error", err)
			errs = append(errs, err)
		}
	}

	slog.InfoContext(ctx, "Full sync completed",
		"users", len(users),
		"errors", len(errs))
	return errors.Join(errs...)
}

// Run does a full sync, then consumes change messages and repeats the full
// sync every interval until ctx is cancelled or consumption fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.SyncAll(ctx); err != nil {
		// Don't exit - continue with normal operation
		slog.ErrorContext(ctx, "Startup sync failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeLedgerChanges(gctx, w.HandleLedgerChanged)
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.SyncAll(gctx); err != nil {
					slog.ErrorContext(gctx, "Periodic sync failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
