package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/core"
	"hearth/internal/services"
)

var (
	_ services.Store = (*MemoryStore)(nil)
	_ services.Store = (*SQLiteRepository)(nil)
)

func TestMemoryStore_CurrentItemsExcludeSuperseded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	c, err := core.MonthlyCadence(1)
	require.NoError(t, err)

	old := core.BudgetItem{
		ID:     "old",
		UserID: "u1",
		Category: core.CategoryBudget{
			ID: "c1", Name: "Rent", Type: core.CategoryExpense,
		},
		Amount: 100, TargetAmount: 100,
		Cadence:   c,
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	next := old
	next.ID = "next"
	next.PredecessorID = "old"
	next.CreatedAt = old.CreatedAt.AddDate(0, 1, 0)

	require.NoError(t, store.CreateBudgetItem(ctx, old))
	require.NoError(t, store.CreateBudgetItem(ctx, next))

	items, err := store.ListCurrentBudgetItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "next", items[0].ID)

	// The superseded row is retained and reachable by ID.
	got, err := store.GetBudgetItem(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID)
}

func TestMemoryStore_UpdateBudgetItemProgress(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	item := core.BudgetItem{
		ID: "goal", UserID: "u1",
		Category:     core.CategoryBudget{ID: "c1", Name: "Holiday", Type: core.CategoryExpense},
		Amount:       100,
		TargetAmount: 1000,
		Cadence:      core.FixedCadence(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	newStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateBudgetItem(ctx, item))
	require.NoError(t, store.UpdateBudgetItemProgress(ctx, "goal", 250, 75, newStart))

	got, err := store.GetBudgetItem(ctx, "goal")
	require.NoError(t, err)
	assert.Equal(t, 250.0, got.Amount)
	assert.Equal(t, 75.0, got.CadenceAmount)
	assert.Equal(t, newStart, got.PeriodStart)

	err = store.UpdateBudgetItemProgress(ctx, "missing", 1, 1, newStart)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListTransfersSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	march := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateTransfer(ctx, core.Transfer{ID: "t1", BudgetItemID: "goal", Amount: 50, PostedAt: march}))
	require.NoError(t, store.CreateTransfer(ctx, core.Transfer{ID: "t2", BudgetItemID: "goal", Amount: 50, PostedAt: april}))
	require.NoError(t, store.CreateTransfer(ctx, core.Transfer{ID: "t3", BudgetItemID: "other", Amount: 50, PostedAt: april}))

	monthStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	transfers, err := store.ListTransfersForItem(ctx, "goal", monthStart)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "t2", transfers[0].ID)
}
