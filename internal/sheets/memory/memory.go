package memory

import (
	"context"
	"fmt"
	"sync"

	"hearth/internal/core"
)

// Journal is an in-memory JournalWriter for local runs and tests.
type Journal struct {
	mu        sync.Mutex
	items     []core.BudgetItem
	transfers []core.Transfer
}

func New() *Journal {
	return &Journal{}
}

// AppendBudgetItem stores the item and returns a synthetic row reference.
func (j *Journal) AppendBudgetItem(_ context.Context, item core.BudgetItem) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.items = append(j.items, item)
	return fmt.Sprintf("mem:item:%d", len(j.items)), nil
}

// AppendTransfer stores the transfer and returns a synthetic row reference.
func (j *Journal) AppendTransfer(_ context.Context, t core.Transfer) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transfers = append(j.transfers, t)
	return fmt.Sprintf("mem:transfer:%d", len(j.transfers)), nil
}

// Items returns a copy of the journaled budget items.
func (j *Journal) Items() []core.BudgetItem {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]core.BudgetItem(nil), j.items...)
}

// Transfers returns a copy of the journaled transfers.
func (j *Journal) Transfers() []core.Transfer {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]core.Transfer(nil), j.transfers...)
}
