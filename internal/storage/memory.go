package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hearth/internal/core"
)

// MemoryStore is an in-memory store for local development and tests. It
// honors the same superseded-item semantics as the SQLite repository.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]core.User
	items      map[string]core.BudgetItem
	categories map[string][]core.CategoryBudget
	accounts   map[string]core.Account
	transfers  map[string]core.Transfer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]core.User),
		items:      make(map[string]core.BudgetItem),
		categories: make(map[string][]core.CategoryBudget),
		accounts:   make(map[string]core.Account),
		transfers:  make(map[string]core.Transfer),
	}
}

func (m *MemoryStore) ListActiveUsers(_ context.Context) ([]core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var users []core.User
	for _, u := range m.users {
		if u.Active {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryStore) EnsureUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		m.users[u.ID] = u
	}
	return nil
}

func (m *MemoryStore) ListCurrentBudgetItems(_ context.Context, userID string) ([]core.BudgetItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	superseded := make(map[string]struct{})
	for _, item := range m.items {
		if item.PredecessorID != "" {
			superseded[item.PredecessorID] = struct{}{}
		}
	}

	var items []core.BudgetItem
	for _, item := range m.items {
		if item.UserID == userID && item.Current(superseded) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *MemoryStore) GetBudgetItem(_ context.Context, id string) (core.BudgetItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return core.BudgetItem{}, fmt.Errorf("budget item %s: %w", id, ErrNotFound)
	}
	return item, nil
}

func (m *MemoryStore) CreateBudgetItem(_ context.Context, item core.BudgetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	m.items[item.ID] = item
	return nil
}

func (m *MemoryStore) UpdateBudgetItemProgress(_ context.Context, itemID string, amount, cadenceAmount float64, periodStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("budget item %s: %w", itemID, ErrNotFound)
	}
	item.Amount = amount
	item.CadenceAmount = cadenceAmount
	item.PeriodStart = periodStart
	m.items[itemID] = item
	return nil
}

func (m *MemoryStore) ListCategories(_ context.Context, userID string) ([]core.CategoryBudget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.CategoryBudget, len(m.categories[userID]))
	copy(out, m.categories[userID])
	return out, nil
}

func (m *MemoryStore) CreateCategory(_ context.Context, userID string, cat core.CategoryBudget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[userID] = append(m.categories[userID], cat)
	return nil
}

func (m *MemoryStore) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []core.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, a core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *MemoryStore) UpdateAccountBalance(_ context.Context, accountID string, balance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	a.Balance = balance
	m.accounts[accountID] = a
	return nil
}

func (m *MemoryStore) CreateTransfer(_ context.Context, t core.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTransfer(_ context.Context, id string) (core.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[id]
	if !ok {
		return core.Transfer{}, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *MemoryStore) ListTransfersForItem(_ context.Context, itemID string, since time.Time) ([]core.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var transfers []core.Transfer
	for _, t := range m.transfers {
		if t.BudgetItemID == itemID && !t.PostedAt.Before(since) {
			transfers = append(transfers, t)
		}
	}
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].PostedAt.Before(transfers[j].PostedAt) })
	return transfers, nil
}
