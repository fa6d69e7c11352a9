package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hearth/internal/core"
)

// Raw recurrence types accepted from forms and the assistant layer.
const (
	ItemTypeMonthly = "monthly"
	ItemTypeYearly  = "yearly"
	ItemTypeOneTime = "one time"
	ItemTypeSavings = "savings"
)

// BudgetInput is a validated record collected from a form submission or
// from the conversational assistant's tool-call result.
type BudgetInput struct {
	CategoryName string     `json:"category"`
	Type         string     `json:"type"`
	Amount       float64    `json:"amount"`
	SavedAmount  *float64   `json:"saved_amount,omitempty"`
	TargetDate   *time.Time `json:"target_date,omitempty"`
}

// CategoryTotal is the observed average recent spend for one category,
// used to seed a first-draft budget from historical data.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// BuildBudgetItem constructs a fully populated budget item from raw input,
// resolving the category against existing and synthesizing a new expense
// category when no exact name match exists. The only side effect is id
// generation; persisting the item and any new category is the caller's job.
func BuildBudgetItem(in BudgetInput, userID string, existing []core.CategoryBudget, now time.Time) (core.BudgetItem, error) {
	if strings.TrimSpace(in.CategoryName) == "" {
		return core.BudgetItem{}, core.ErrEmptyCategory
	}
	if in.Amount <= 0 {
		return core.BudgetItem{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, in.Amount)
	}

	cadence, err := cadenceForType(in.Type, in.TargetDate, now)
	if err != nil {
		return core.BudgetItem{}, err
	}

	// For savings goals the item amount is what has been saved so far;
	// every other type contributes its full amount this period.
	amount := in.Amount
	if in.Type == ItemTypeSavings {
		amount = 0
		if in.SavedAmount != nil {
			amount = *in.SavedAmount
		}
	}

	item := core.BudgetItem{
		ID:           uuid.New().String(),
		UserID:       userID,
		Category:     resolveCategory(in.CategoryName, existing),
		Amount:       amount,
		TargetAmount: in.Amount,
		Cadence:      cadence,
		CreatedAt:    now,
	}

	period := core.ComputePeriod(cadence, now)
	item.PeriodStart = period.Start
	item.PeriodEnd = period.End
	item.CadenceAmount = core.ComputeCadenceAmount(item)

	return item, nil
}

// BuildBudget builds a batch of budget items plus one extra monthly item
// per category-total entry. Categories synthesized for earlier inputs are
// visible to later ones, so two inputs naming the same new category share
// a single category id.
func BuildBudget(userID string, inputs []BudgetInput, totals []CategoryTotal, existing []core.CategoryBudget, now time.Time) ([]core.BudgetItem, error) {
	known := append([]core.CategoryBudget(nil), existing...)
	items := make([]core.BudgetItem, 0, len(inputs)+len(totals))

	for _, in := range inputs {
		item, err := BuildBudgetItem(in, userID, known, now)
		if err != nil {
			return nil, fmt.Errorf("build item for %q: %w", in.CategoryName, err)
		}
		known = rememberCategory(known, item.Category)
		items = append(items, item)
	}

	// Historical spend seeds a first-draft budget: one monthly item per
	// category total, contributing the observed average.
	for _, ct := range totals {
		item, err := BuildBudgetItem(BudgetInput{
			CategoryName: ct.Category,
			Type:         ItemTypeMonthly,
			Amount:       ct.Total,
		}, userID, known, now)
		if err != nil {
			return nil, fmt.Errorf("build item for category total %q: %w", ct.Category, err)
		}
		known = rememberCategory(known, item.Category)
		items = append(items, item)
	}

	return items, nil
}

func cadenceForType(itemType string, targetDate *time.Time, now time.Time) (core.Cadence, error) {
	switch itemType {
	case ItemTypeMonthly:
		return core.MonthlyCadence(1)
	case ItemTypeYearly:
		return core.YearlyCadence(1, 1)
	case ItemTypeOneTime:
		return core.EventuallyCadence(), nil
	case ItemTypeSavings:
		date := now
		if targetDate != nil {
			date = *targetDate
		}
		return core.FixedCadence(date), nil
	default:
		return core.Cadence{}, fmt.Errorf("%w: %q", core.ErrUnknownItemType, itemType)
	}
}

// resolveCategory matches by exact name, first match wins. Duplicate names
// are a latent data-quality risk, so ambiguity is logged but does not
// change behavior.
func resolveCategory(name string, existing []core.CategoryBudget) core.CategoryBudget {
	var found *core.CategoryBudget
	matches := 0
	for i := range existing {
		if existing[i].Name == name {
			if found == nil {
				found = &existing[i]
			}
			matches++
		}
	}
	if matches > 1 {
		slog.Warn("Ambiguous category name, using first match",
			"category", name,
			"matches", matches,
			"category_id", found.ID)
	}
	if found != nil {
		return *found
	}

	return core.CategoryBudget{
		ID:    uuid.New().String(),
		Name:  name,
		Type:  core.CategoryExpense,
		Order: len(existing),
	}
}

func rememberCategory(known []core.CategoryBudget, cat core.CategoryBudget) []core.CategoryBudget {
	for _, c := range known {
		if c.ID == cat.ID {
			return known
		}
	}
	return append(known, cat)
}
