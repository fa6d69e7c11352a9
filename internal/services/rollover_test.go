package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/core"
)

// fakeStore is an in-memory Store for driving the rollover driver in tests.
type fakeStore struct {
	mu         sync.Mutex
	users      []core.User
	items      []core.BudgetItem
	categories map[string][]core.CategoryBudget
	accounts   []core.Account
	transfers  []core.Transfer

	failUsersErr    error
	failItemsForUID string
}

func newFakeStore() *fakeStore {
	return &fakeStore{categories: make(map[string][]core.CategoryBudget)}
}

func (f *fakeStore) ListActiveUsers(context.Context) ([]core.User, error) {
	if f.failUsersErr != nil {
		return nil, f.failUsersErr
	}
	return f.users, nil
}

func (f *fakeStore) ListCurrentBudgetItems(_ context.Context, userID string) ([]core.BudgetItem, error) {
	if userID == f.failItemsForUID {
		return nil, errors.New("simulated read failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	superseded := make(map[string]struct{})
	for _, item := range f.items {
		if item.PredecessorID != "" {
			superseded[item.PredecessorID] = struct{}{}
		}
	}

	var out []core.BudgetItem
	for _, item := range f.items {
		if item.UserID == userID && item.Current(superseded) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) GetBudgetItem(_ context.Context, id string) (core.BudgetItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return core.BudgetItem{}, errors.New("not found")
}

func (f *fakeStore) CreateBudgetItem(_ context.Context, item core.BudgetItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeStore) UpdateBudgetItemProgress(_ context.Context, itemID string, amount, cadenceAmount float64, periodStart time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Amount = amount
			f.items[i].CadenceAmount = cadenceAmount
			f.items[i].PeriodStart = periodStart
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) ListCategories(_ context.Context, userID string) ([]core.CategoryBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories[userID], nil
}

func (f *fakeStore) CreateCategory(_ context.Context, userID string, cat core.CategoryBudget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[userID] = append(f.categories[userID], cat)
	return nil
}

func (f *fakeStore) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAccountBalance(_ context.Context, accountID string, balance float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.accounts {
		if f.accounts[i].ID == accountID {
			f.accounts[i].Balance = balance
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) CreateTransfer(_ context.Context, t core.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, t)
	return nil
}

func (f *fakeStore) GetTransfer(_ context.Context, id string) (core.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transfers {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transfer{}, errors.New("not found")
}

func (f *fakeStore) ListTransfersForItem(_ context.Context, itemID string, since time.Time) ([]core.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transfer
	for _, t := range f.transfers {
		if t.BudgetItemID == itemID && !t.PostedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) itemsFor(userID string) []core.BudgetItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.BudgetItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out
}

var _ Store = (*fakeStore)(nil)

func monthlyItem(t *testing.T, userID string, amount float64, start, end time.Time) core.BudgetItem {
	t.Helper()
	c, err := core.MonthlyCadence(1)
	require.NoError(t, err)
	item := core.BudgetItem{
		ID:           "item-" + userID,
		UserID:       userID,
		Category:     core.CategoryBudget{ID: "cat-" + userID, Name: "Rent", Type: core.CategoryExpense},
		Amount:       amount,
		TargetAmount: amount,
		Cadence:      c,
		PeriodStart:  start,
		PeriodEnd:    end,
	}
	item.CadenceAmount = core.ComputeCadenceAmount(item)
	return item
}

func TestRollover_ExpiredMonthlyItem(t *testing.T) {
	now := time.Date(2024, 4, 2, 3, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.users = []core.User{{ID: "u1", Active: true}}
	old := monthlyItem(t, "u1", 1500,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	old.Amount = 900 // partially spent period
	store.items = []core.BudgetItem{old}

	driver := NewRolloverDriver(store, nil, 1)
	driver.now = func() time.Time { return now }

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 1, result.CreatedCount)

	items := store.itemsFor("u1")
	require.Len(t, items, 2)

	next := items[1]
	assert.Equal(t, old.ID, next.PredecessorID)
	assert.Equal(t, old.PeriodEnd, next.PeriodStart)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), next.PeriodEnd)
	assert.Equal(t, 0.0, next.Amount)
	assert.Equal(t, old.TargetAmount, next.TargetAmount)
	assert.Equal(t, old.Category, next.Category)
	assert.Equal(t, old.Cadence, next.Cadence)
	assert.Equal(t, old.TargetAmount, next.CadenceAmount)
	assert.NotEqual(t, old.ID, next.ID)
}

func TestRollover_SecondRunDoesNotReroll(t *testing.T) {
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.users = []core.User{{ID: "u1", Active: true}}
	store.items = []core.BudgetItem{monthlyItem(t, "u1", 100,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))}

	driver := NewRolloverDriver(store, nil, 1)
	driver.now = func() time.Time { return now }

	first, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.CreatedCount)

	// The expired item is superseded now; a second run finds nothing due.
	second, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Len(t, store.itemsFor("u1"), 2)
}

func TestRollover_TerminalCadencesNotRolled(t *testing.T) {
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.users = []core.User{{ID: "u1", Active: true}}
	store.items = []core.BudgetItem{
		{
			ID: "savings", UserID: "u1",
			Category:     core.CategoryBudget{ID: "c1", Name: "Holiday", Type: core.CategoryExpense},
			Amount:       100, TargetAmount: 1000,
			Cadence:     core.FixedCadence(past),
			PeriodStart: past.AddDate(0, -6, 0), PeriodEnd: past,
		},
		{
			ID: "onetime", UserID: "u1",
			Category:     core.CategoryBudget{ID: "c2", Name: "Repair", Type: core.CategoryExpense},
			Amount:       50, TargetAmount: 50,
			Cadence:     core.EventuallyCadence(),
			PeriodStart: past, PeriodEnd: past,
		},
	}

	driver := NewRolloverDriver(store, nil, 1)
	driver.now = func() time.Time { return now }

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	assert.Len(t, store.itemsFor("u1"), 2)
}

func TestRollover_UserFailureIsolation(t *testing.T) {
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.users = []core.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}
	store.failItemsForUID = "u2"
	store.items = []core.BudgetItem{
		monthlyItem(t, "u1", 100, start, end),
		monthlyItem(t, "u3", 300, start, end),
	}

	driver := NewRolloverDriver(store, nil, 1)
	driver.now = func() time.Time { return now }

	result, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.UsersProcessed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 2, result.CreatedCount)

	// Both non-failing users' rollovers were persisted.
	assert.Len(t, store.itemsFor("u1"), 2)
	assert.Len(t, store.itemsFor("u3"), 2)
}

func TestRollover_FatalWhenUserFetchFails(t *testing.T) {
	store := newFakeStore()
	store.failUsersErr = errors.New("database unavailable")

	driver := NewRolloverDriver(store, nil, 1)
	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active users")
}

func TestRollover_PostsDueSavingsTransfer(t *testing.T) {
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	goal := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	item := core.BudgetItem{
		ID:           "goal-1",
		UserID:       "u1",
		Category:     core.CategoryBudget{ID: "c1", Name: "Emergency Fund", Type: core.CategoryExpense},
		Amount:       1000,
		TargetAmount: 6000,
		Cadence:      core.FixedCadence(goal),
		PeriodStart:  now.AddDate(0, -1, 0),
		PeriodEnd:    goal,
	}
	item.CadenceAmount = core.ComputeCadenceAmount(item)

	store := newFakeStore()
	store.users = []core.User{{ID: "u1"}}
	store.items = []core.BudgetItem{item}
	store.accounts = []core.Account{
		{ID: "acc-avail", UserID: "u1", Kind: core.AccountAvailable, Balance: 2000},
		{ID: "acc-save", UserID: "u1", Kind: core.AccountSavings, Balance: 1000},
	}

	driver := NewRolloverDriver(store, nil, 1)
	driver.now = func() time.Time { return now }

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransferCount)

	require.Len(t, store.transfers, 1)
	tr := store.transfers[0]
	assert.Equal(t, "acc-avail", tr.FromAccountID)
	assert.Equal(t, "acc-save", tr.ToAccountID)
	assert.Equal(t, "goal-1", tr.BudgetItemID)
	// 5000 remaining over the five months from April to the September goal.
	assert.Equal(t, 1000.0, tr.Amount)

	assert.Equal(t, 1000.0, store.accounts[0].Balance)
	assert.Equal(t, 2000.0, store.accounts[1].Balance)

	// Saved-to-date progress, the derived monthly figure, and the remaining
	// window moved together.
	updated, err := store.GetBudgetItem(context.Background(), "goal-1")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, updated.Amount)
	assert.Equal(t, 1000.0, updated.CadenceAmount)
	assert.Equal(t, now.AddDate(0, 1, 0), updated.PeriodStart)

	// Same month, second run: the goal is already funded for April.
	again, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.TransferCount)
	assert.Len(t, store.transfers, 1)
}

func TestRollover_TransferBoundedByAvailableBalance(t *testing.T) {
	now := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	goal := time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)

	item := core.BudgetItem{
		ID:           "goal-1",
		UserID:       "u1",
		Category:     core.CategoryBudget{ID: "c1", Name: "House", Type: core.CategoryExpense},
		Amount:       0,
		TargetAmount: 3000,
		Cadence:      core.FixedCadence(goal),
		PeriodStart:  now,
		PeriodEnd:    goal,
	}
	item.CadenceAmount = 500.0

	store := newFakeStore()
	store.users = []core.User{{ID: "u1"}}
	store.items = []core.BudgetItem{item}
	store.accounts = []core.Account{
		{ID: "acc-avail", UserID: "u1", Kind: core.AccountAvailable, Balance: 120},
		{ID: "acc-save", UserID: "u1", Kind: core.AccountSavings, Balance: 0},
	}

	driver := NewRolloverDriver(store, nil, 1)
	driver.now = func() time.Time { return now }

	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransferCount)
	require.Len(t, store.transfers, 1)
	assert.Equal(t, 120.0, store.transfers[0].Amount)
	assert.Equal(t, 0.0, store.accounts[0].Balance)
}

func TestRollover_ContributionHoldsSteadyAcrossMonths(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	goal := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	item := core.BudgetItem{
		ID:           "goal-1",
		UserID:       "u1",
		Category:     core.CategoryBudget{ID: "c1", Name: "Holiday", Type: core.CategoryExpense},
		Amount:       0,
		TargetAmount: 600,
		Cadence:      core.FixedCadence(goal),
		PeriodStart:  start,
		PeriodEnd:    goal,
	}
	item.CadenceAmount = core.ComputeCadenceAmount(item)

	store := newFakeStore()
	store.users = []core.User{{ID: "u1"}}
	store.items = []core.BudgetItem{item}
	store.accounts = []core.Account{
		{ID: "acc-avail", UserID: "u1", Kind: core.AccountAvailable, Balance: 10000},
		{ID: "acc-save", UserID: "u1", Kind: core.AccountSavings, Balance: 0},
	}

	driver := NewRolloverDriver(store, nil, 1)

	// One run per month from April through September. With on-track
	// funding the slice must stay a flat 100, not shrink as the saved
	// balance grows.
	for month := 0; month < 6; month++ {
		now := start.AddDate(0, month, 0)
		driver.now = func() time.Time { return now }

		result, err := driver.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, result.TransferCount, "month %d", month)
		assert.InDelta(t, 100.0, store.transfers[len(store.transfers)-1].Amount, 1e-9, "month %d", month)
	}

	funded, err := store.GetBudgetItem(context.Background(), "goal-1")
	require.NoError(t, err)
	assert.InDelta(t, 600.0, funded.Amount, 1e-9)

	// Fully funded by the goal date: October posts nothing.
	driver.now = func() time.Time { return goal }
	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TransferCount)
}

func TestRollover_MissedMonthCatchesUp(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	goal := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	item := core.BudgetItem{
		ID:           "goal-1",
		UserID:       "u1",
		Category:     core.CategoryBudget{ID: "c1", Name: "Insurance", Type: core.CategoryExpense},
		Amount:       0,
		TargetAmount: 300,
		Cadence:      core.FixedCadence(goal),
		PeriodStart:  start,
		PeriodEnd:    goal,
	}
	item.CadenceAmount = core.ComputeCadenceAmount(item)

	store := newFakeStore()
	store.users = []core.User{{ID: "u1"}}
	store.items = []core.BudgetItem{item}
	store.accounts = []core.Account{
		{ID: "acc-avail", UserID: "u1", Kind: core.AccountAvailable, Balance: 1000},
		{ID: "acc-save", UserID: "u1", Kind: core.AccountSavings, Balance: 0},
	}

	driver := NewRolloverDriver(store, nil, 1)

	driver.now = func() time.Time { return start }
	_, err := driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.transfers, 1)
	assert.InDelta(t, 100.0, store.transfers[0].Amount, 1e-9)

	// May never runs. June is the last month before the goal, so it owes
	// both its own slice and May's missed one.
	driver.now = func() time.Time { return start.AddDate(0, 2, 0) }
	_, err = driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.transfers, 2)
	assert.InDelta(t, 200.0, store.transfers[1].Amount, 1e-9)
}
