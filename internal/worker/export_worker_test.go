package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/sheets/memory"
	"hearth/internal/storage"
)

func TestExportWorker_HandleBudgetItemCreated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	journal := memory.New()
	w := NewExportWorker(store, journal)

	cadence, err := core.MonthlyCadence(1)
	require.NoError(t, err)
	require.NoError(t, store.CreateBudgetItem(ctx, core.BudgetItem{
		ID:           "item-1",
		UserID:       "u1",
		Category:     core.CategoryBudget{ID: "c1", Name: "Rent", Type: core.CategoryExpense},
		Amount:       1500,
		TargetAmount: 1500,
		Cadence:      cadence,
	}))

	msg := amqp.NewJournalMessage(amqp.KindBudgetItemCreated, "item-1", "u1")
	require.NoError(t, w.HandleJournalMessage(ctx, msg))

	items := journal.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)
}

func TestExportWorker_HandleTransferPosted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	journal := memory.New()
	w := NewExportWorker(store, journal)

	require.NoError(t, store.CreateTransfer(ctx, core.Transfer{
		ID:           "t1",
		UserID:       "u1",
		BudgetItemID: "item-1",
		Amount:       100,
		PostedAt:     time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	}))

	msg := amqp.NewJournalMessage(amqp.KindTransferPosted, "t1", "u1")
	require.NoError(t, w.HandleJournalMessage(ctx, msg))

	transfers := journal.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "t1", transfers[0].ID)
}

func TestExportWorker_MissingRecordReturnsError(t *testing.T) {
	w := NewExportWorker(storage.NewMemoryStore(), memory.New())

	msg := amqp.NewJournalMessage(amqp.KindBudgetItemCreated, "missing", "u1")
	err := w.HandleJournalMessage(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExportWorker_UnknownKindIsDropped(t *testing.T) {
	journal := memory.New()
	w := NewExportWorker(storage.NewMemoryStore(), journal)

	msg := amqp.NewJournalMessage("unknown", "x", "u1")
	require.NoError(t, w.HandleJournalMessage(context.Background(), msg))
	assert.Empty(t, journal.Items())
	assert.Empty(t, journal.Transfers())
}
