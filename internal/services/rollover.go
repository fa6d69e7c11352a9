package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hearth/internal/core"
	applog "hearth/internal/log"
)

// RolloverDriver is the scheduled batch process that supersedes
// expired-period budget items with rolled-forward successors and posts due
// automated savings transfers.
//
// Users are processed with a bounded concurrency limit. The default of 1
// keeps the run sequential on purpose: it bounds load on the backing store,
// not correctness — there is no cross-user dependency. Raising the limit
// changes throughput only; the per-user failure isolation contract stays
// the same.
type RolloverDriver struct {
	store       Store
	events      EventPublisher
	concurrency int
	now         func() time.Time
}

// RolloverResult aggregates one batch run.
type RolloverResult struct {
	UsersProcessed int `json:"users_processed"`
	SuccessCount   int `json:"success_count"`
	ErrorCount     int `json:"error_count"`
	CreatedCount   int `json:"created_count"`
	TransferCount  int `json:"transfer_count"`
}

func NewRolloverDriver(store Store, events EventPublisher, concurrency int) *RolloverDriver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RolloverDriver{
		store:       store,
		events:      events,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run processes every active user once. A user whose processing fails is
// logged and counted; the failure never aborts the remaining users. Only a
// failure to fetch the user list itself is fatal to the run.
func (d *RolloverDriver) Run(ctx context.Context) (RolloverResult, error) {
	users, err := d.store.ListActiveUsers(ctx)
	if err != nil {
		return RolloverResult{}, fmt.Errorf("list active users: %w", err)
	}

	now := d.now()
	slog.InfoContext(ctx, "Starting budget rollover run",
		"users", len(users),
		"concurrency", d.concurrency,
		"run_date", now.Format("2006-01-02"))

	var success, failures, created, transfers int64
	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)

	for _, user := range users {
		user := user
		g.Go(func() error {
			createdCount, transferCount, err := d.processUser(ctx, user, now)
			if err != nil {
				slog.ErrorContext(ctx, "Rollover failed for user",
					applog.FieldUserID, user.ID,
					applog.FieldError, err)
				atomic.AddInt64(&failures, 1)
				return nil
			}
			atomic.AddInt64(&success, 1)
			atomic.AddInt64(&created, int64(createdCount))
			atomic.AddInt64(&transfers, int64(transferCount))
			return nil
		})
	}

	// Worker funcs swallow their errors into the counters, so Wait only
	// blocks; it never reports a failure.
	_ = g.Wait()

	result := RolloverResult{
		UsersProcessed: len(users),
		SuccessCount:   int(success),
		ErrorCount:     int(failures),
		CreatedCount:   int(created),
		TransferCount:  int(transfers),
	}

	slog.InfoContext(ctx, "Budget rollover run complete",
		"users", result.UsersProcessed,
		"succeeded", result.SuccessCount,
		"failed", result.ErrorCount,
		"items_created", result.CreatedCount,
		"transfers_posted", result.TransferCount)

	return result, nil
}

func (d *RolloverDriver) processUser(ctx context.Context, user core.User, now time.Time) (int, int, error) {
	items, err := d.store.ListCurrentBudgetItems(ctx, user.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list budget items: %w", err)
	}

	createdCount := 0
	for _, item := range items {
		// Fixed and Eventually cadences are one-shot: nothing to roll.
		if !item.Cadence.Repeats() || !item.Period().Expired(now) {
			continue
		}

		next := rolledForward(item, now)
		if err := d.store.CreateBudgetItem(ctx, next); err != nil {
			return createdCount, 0, fmt.Errorf("create rolled-forward item for %s: %w", item.ID, err)
		}
		createdCount++

		slog.InfoContext(ctx, "Budget item rolled forward",
			applog.FieldUserID, user.ID,
			applog.FieldItemID, next.ID,
			"predecessor_id", item.ID,
			applog.FieldCategory, item.Category.Name,
			applog.FieldPeriodStart, next.PeriodStart.Format("2006-01-02"),
			applog.FieldPeriodEnd, next.PeriodEnd.Format("2006-01-02"))

		if d.events != nil {
			if err := d.events.PublishBudgetItemCreated(ctx, next.ID, user.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to publish rollover message",
					applog.FieldItemID, next.ID, applog.FieldError, err)
			}
		}
	}

	transferCount, err := d.postDueTransfers(ctx, user, items, now)
	if err != nil {
		return createdCount, transferCount, err
	}

	return createdCount, transferCount, nil
}

// rolledForward builds the successor item for an expired period: the new
// window starts where the old one ended, the contribution resets to zero,
// and the monthly-equivalent figure is recomputed from the new inputs.
func rolledForward(item core.BudgetItem, now time.Time) core.BudgetItem {
	next := item
	next.ID = uuid.New().String()
	next.PredecessorID = item.ID
	next.Amount = 0
	next.PeriodStart = item.PeriodEnd
	next.PeriodEnd = core.ComputePeriod(item.Cadence, now).End
	next.CadenceAmount = core.ComputeCadenceAmount(next)
	next.CreatedAt = now
	return next
}

// postDueTransfers moves this month's contribution for each unfunded
// savings goal from the user's available account to their savings account,
// bounded by the available balance. At most one transfer per item per
// calendar month.
func (d *RolloverDriver) postDueTransfers(ctx context.Context, user core.User, items []core.BudgetItem, now time.Time) (int, error) {
	accounts, err := d.store.ListAccounts(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	var available, savings *core.Account
	for i := range accounts {
		switch accounts[i].Kind {
		case core.AccountAvailable:
			if available == nil {
				available = &accounts[i]
			}
		case core.AccountSavings:
			if savings == nil {
				savings = &accounts[i]
			}
		}
	}
	if available == nil || savings == nil {
		slog.DebugContext(ctx, "User has no transfer account pair, skipping transfers",
			applog.FieldUserID, user.ID)
		return 0, nil
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	posted := 0

	for _, item := range items {
		if item.Cadence.Kind() != core.CadenceFixed {
			continue
		}
		remaining := item.TargetAmount - item.Amount
		if remaining <= 0 {
			continue
		}

		prior, err := d.store.ListTransfersForItem(ctx, item.ID, monthStart)
		if err != nil {
			return posted, fmt.Errorf("list transfers for item %s: %w", item.ID, err)
		}
		if len(prior) > 0 {
			continue
		}

		// This month's slice spreads the remaining balance over the months
		// left from now, not over the goal's original span. A missed month
		// shrinks the divisor, so the next run posts a catch-up instead of
		// carrying the shortfall past the goal date.
		due := item
		due.PeriodStart = now
		amount := core.ComputeCadenceAmount(due)
		if amount > available.Balance {
			amount = available.Balance
		}
		if amount <= 0 {
			slog.WarnContext(ctx, "Insufficient available balance for savings transfer",
				applog.FieldUserID, user.ID,
				applog.FieldItemID, item.ID,
				"balance", available.Balance)
			continue
		}

		transfer := core.Transfer{
			ID:            uuid.New().String(),
			UserID:        user.ID,
			FromAccountID: available.ID,
			ToAccountID:   savings.ID,
			BudgetItemID:  item.ID,
			Amount:        amount,
			PostedAt:      now,
		}
		if err := d.store.CreateTransfer(ctx, transfer); err != nil {
			return posted, fmt.Errorf("create transfer for item %s: %w", item.ID, err)
		}

		available.Balance -= amount
		savings.Balance += amount
		if err := d.store.UpdateAccountBalance(ctx, available.ID, available.Balance); err != nil {
			return posted, fmt.Errorf("debit account %s: %w", available.ID, err)
		}
		if err := d.store.UpdateAccountBalance(ctx, savings.ID, savings.Balance); err != nil {
			return posted, fmt.Errorf("credit account %s: %w", savings.ID, err)
		}

		// The month just funded leaves the remaining window, so the
		// persisted start advances one month. Recomputing from the original
		// start would keep the full span in the divisor and decay each
		// month's contribution toward zero.
		funded := item
		funded.Amount += amount
		funded.PeriodStart = now.AddDate(0, 1, 0)
		funded.CadenceAmount = core.ComputeCadenceAmount(funded)
		if err := d.store.UpdateBudgetItemProgress(ctx, item.ID, funded.Amount, funded.CadenceAmount, funded.PeriodStart); err != nil {
			return posted, fmt.Errorf("update savings progress for item %s: %w", item.ID, err)
		}
		posted++

		slog.InfoContext(ctx, "Automated savings transfer posted",
			applog.FieldUserID, user.ID,
			applog.FieldTransferID, transfer.ID,
			applog.FieldItemID, item.ID,
			applog.FieldAmount, amount)

		if d.events != nil {
			if err := d.events.PublishTransferPosted(ctx, transfer.ID, user.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to publish transfer message",
					applog.FieldTransferID, transfer.ID, applog.FieldError, err)
			}
		}
	}

	return posted, nil
}
