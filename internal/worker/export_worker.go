package worker

import (
	"context"
	"fmt"
	"log/slog"

	"hearth/internal/amqp"
	"hearth/internal/core"
	applog "hearth/internal/log"
	"hearth/internal/sheets"
)

// Store is the read surface the export worker needs.
type Store interface {
	GetBudgetItem(ctx context.Context, id string) (core.BudgetItem, error)
	GetTransfer(ctx context.Context, id string) (core.Transfer, error)
}

// ExportWorker consumes journal messages and appends the referenced
// records to the external journal. Messages carry identifiers only, so
// the worker always exports the record's latest state.
type ExportWorker struct {
	store   Store
	journal sheets.JournalWriter
}

func NewExportWorker(store Store, journal sheets.JournalWriter) *ExportWorker {
	return &ExportWorker{store: store, journal: journal}
}

// HandleJournalMessage processes a single journal message from AMQP.
func (w *ExportWorker) HandleJournalMessage(ctx context.Context, msg *amqp.JournalMessage) error {
	switch msg.Kind {
	case amqp.KindBudgetItemCreated:
		item, err := w.store.GetBudgetItem(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("get budget item from storage: %w", err)
		}
		ref, err := w.journal.AppendBudgetItem(ctx, item)
		if err != nil {
			return fmt.Errorf("append budget item to journal: %w", err)
		}
		slog.InfoContext(ctx, "Exported budget item",
			"id", msg.ID,
			applog.FieldUserID, msg.UserID,
			"journal_ref", ref)
		return nil

	case amqp.KindTransferPosted:
		transfer, err := w.store.GetTransfer(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("get transfer from storage: %w", err)
		}
		ref, err := w.journal.AppendTransfer(ctx, transfer)
		if err != nil {
			return fmt.Errorf("append transfer to journal: %w", err)
		}
		slog.InfoContext(ctx, "Exported transfer",
			"id", msg.ID,
			applog.FieldUserID, msg.UserID,
			"journal_ref", ref)
		return nil

	default:
		// Unknown kinds are dropped rather than requeued forever.
		slog.WarnContext(ctx, "Ignoring journal message of unknown kind",
			"kind", msg.Kind,
			"id", msg.ID)
		return nil
	}
}
