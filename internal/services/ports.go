// Package services provides the budget business logic: building budget
// items from raw input, rolling expired periods forward, and posting
// automated savings transfers.
package services

import (
	"context"
	"time"

	"hearth/internal/core"
)

// Store is the persistence boundary the services operate through. The
// engine itself never issues storage calls of its own; implementations live
// in internal/storage.
type Store interface {
	ListActiveUsers(ctx context.Context) ([]core.User, error)

	// ListCurrentBudgetItems returns only live items: ones not yet
	// superseded by a rolled-forward successor.
	ListCurrentBudgetItems(ctx context.Context, userID string) ([]core.BudgetItem, error)
	GetBudgetItem(ctx context.Context, id string) (core.BudgetItem, error)
	CreateBudgetItem(ctx context.Context, item core.BudgetItem) error
	// UpdateBudgetItemProgress records saved-to-date progress on a savings
	// item together with its recomputed monthly-equivalent amount and the
	// start of the window the remaining balance spreads over.
	UpdateBudgetItemProgress(ctx context.Context, itemID string, amount, cadenceAmount float64, periodStart time.Time) error

	ListCategories(ctx context.Context, userID string) ([]core.CategoryBudget, error)
	CreateCategory(ctx context.Context, userID string, cat core.CategoryBudget) error

	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID string, balance float64) error

	CreateTransfer(ctx context.Context, t core.Transfer) error
	GetTransfer(ctx context.Context, id string) (core.Transfer, error)
	ListTransfersForItem(ctx context.Context, itemID string, since time.Time) ([]core.Transfer, error)
}

// EventPublisher announces committed writes on the message bus so the
// export worker can journal them. A nil publisher disables publishing;
// callers treat publish failures as non-fatal.
type EventPublisher interface {
	PublishBudgetItemCreated(ctx context.Context, itemID, userID string) error
	PublishTransferPosted(ctx context.Context, transferID, userID string) error
}
