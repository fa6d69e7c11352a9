package sheets

import (
	"context"

	"hearth/internal/core"
)

// Ports for outbound journal adapters.
type (
	// JournalWriter appends budget events to an external journal, one row
	// per event. Implementations return an opaque row reference.
	JournalWriter interface {
		AppendBudgetItem(ctx context.Context, item core.BudgetItem) (rowRef string, err error)
		AppendTransfer(ctx context.Context, t core.Transfer) (rowRef string, err error)
	}
)
