package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"hearth/internal/core"
	applog "hearth/internal/log"
)

// BudgetService orchestrates interactive budget item creation across the
// store and the message bus.
type BudgetService struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

func NewBudgetService(store Store, events EventPublisher) *BudgetService {
	return &BudgetService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// CreateItem builds one budget item from raw input and persists it,
// creating the category first when the input named a new one.
func (s *BudgetService) CreateItem(ctx context.Context, userID string, in BudgetInput) (core.BudgetItem, error) {
	existing, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("list categories: %w", err)
	}

	item, err := BuildBudgetItem(in, userID, existing, s.now())
	if err != nil {
		return core.BudgetItem{}, err
	}

	if err := s.persistItem(ctx, item, existing); err != nil {
		return core.BudgetItem{}, err
	}

	slog.InfoContext(ctx, "Budget item created",
		applog.FieldItemID, item.ID,
		applog.FieldUserID, userID,
		applog.FieldCategory, item.Category.Name,
		applog.FieldCadence, item.Cadence.String(),
		applog.FieldAmount, item.Amount,
		"cadence_amount", item.CadenceAmount)

	return item, nil
}

// BuildDraft builds and persists a whole first-draft budget: the collected
// inputs plus one monthly item per historical category total.
func (s *BudgetService) BuildDraft(ctx context.Context, userID string, inputs []BudgetInput, totals []CategoryTotal) ([]core.BudgetItem, error) {
	existing, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	items, err := BuildBudget(userID, inputs, totals, existing, s.now())
	if err != nil {
		return nil, err
	}

	persisted := existing
	for _, item := range items {
		if err := s.persistItem(ctx, item, persisted); err != nil {
			return nil, err
		}
		persisted = rememberCategory(persisted, item.Category)
	}

	slog.InfoContext(ctx, "Draft budget created",
		applog.FieldUserID, userID,
		"items", len(items),
		"from_inputs", len(inputs),
		"from_totals", len(totals))

	return items, nil
}

// ListItems returns the user's live budget items.
func (s *BudgetService) ListItems(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	return s.store.ListCurrentBudgetItems(ctx, userID)
}

// CategorySummary is one category's monthly-equivalent total.
type CategorySummary struct {
	Category string            `json:"category"`
	Type     core.CategoryType `json:"type"`
	Monthly  float64           `json:"monthly"`
}

// BudgetSummary aggregates cadence amounts across a user's live items.
type BudgetSummary struct {
	Monthly    float64           `json:"monthly"`
	ByCategory []CategorySummary `json:"by_category"`
}

// Summary sums cadence amounts per category. Because every item carries a
// monthly-equivalent figure, items of different cadences sum directly.
func (s *BudgetService) Summary(ctx context.Context, userID string) (BudgetSummary, error) {
	items, err := s.store.ListCurrentBudgetItems(ctx, userID)
	if err != nil {
		return BudgetSummary{}, fmt.Errorf("list budget items: %w", err)
	}

	byName := make(map[string]*CategorySummary)
	var summary BudgetSummary
	for _, item := range items {
		summary.Monthly += item.CadenceAmount
		cs, ok := byName[item.Category.Name]
		if !ok {
			cs = &CategorySummary{Category: item.Category.Name, Type: item.Category.Type}
			byName[item.Category.Name] = cs
		}
		cs.Monthly += item.CadenceAmount
	}

	summary.ByCategory = make([]CategorySummary, 0, len(byName))
	for _, cs := range byName {
		summary.ByCategory = append(summary.ByCategory, *cs)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Category < summary.ByCategory[j].Category
	})

	return summary, nil
}

// persistItem writes the item's category when it is not yet known, then the
// item itself, then announces the write. Publishing is best-effort: the
// item is already durable.
func (s *BudgetService) persistItem(ctx context.Context, item core.BudgetItem, known []core.CategoryBudget) error {
	isNew := true
	for _, c := range known {
		if c.ID == item.Category.ID {
			isNew = false
			break
		}
	}
	if isNew {
		if err := s.store.CreateCategory(ctx, item.UserID, item.Category); err != nil {
			return fmt.Errorf("create category %q: %w", item.Category.Name, err)
		}
	}

	if err := s.store.CreateBudgetItem(ctx, item); err != nil {
		return fmt.Errorf("create budget item: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishBudgetItemCreated(ctx, item.ID, item.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget item message",
				applog.FieldItemID, item.ID, applog.FieldError, err)
		}
	}
	return nil
}
