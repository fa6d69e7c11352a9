package core

import (
	"errors"
	"strings"
	"time"
)

// CategoryType classifies a budget category as money in or money out.
type CategoryType string

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category name")
	ErrUnknownItemType  = errors.New("unknown budget item type")
	ErrMissingUser      = errors.New("missing user id")
	ErrInvalidCategoryT = errors.New("invalid category type")
)

type (
	// CategoryBudget is an income or expense classification for budget
	// items. Its lifecycle is independent of the items referencing it:
	// categories are looked up by exact name and synthesized on demand.
	CategoryBudget struct {
		ID    string
		Name  string
		Type  CategoryType
		Order int
	}

	// BudgetItem is one line of a budget.
	//
	// Amount is what is actually contributed in the current period; for a
	// savings goal it holds the amount saved toward the goal so far, not a
	// recurring payment. TargetAmount is the goal figure (equal to Amount's
	// full-period value for recurring items). CadenceAmount is denormalized
	// storage of ComputeCadenceAmount's output and must be recomputed
	// whenever any of its inputs change.
	BudgetItem struct {
		ID            string
		UserID        string
		Category      CategoryBudget
		Amount        float64
		TargetAmount  float64
		Cadence       Cadence
		PeriodStart   time.Time
		PeriodEnd     time.Time
		CadenceAmount float64

		// PredecessorID links a rolled-forward item to the expired item it
		// supersedes. Empty for items created interactively. An item that
		// appears as some other item's predecessor is no longer current.
		PredecessorID string

		CreatedAt time.Time
	}

	// User is the slice of an account holder the batch driver needs.
	User struct {
		ID          string
		DisplayName string
		Active      bool
	}

	// AccountKind separates spendable balance from goal savings.
	AccountKind string

	// Account holds a user's balance of a given kind.
	Account struct {
		ID      string
		UserID  string
		Name    string
		Kind    AccountKind
		Balance float64
	}

	// Transfer records an automated fund movement toward a savings goal.
	Transfer struct {
		ID            string
		UserID        string
		FromAccountID string
		ToAccountID   string
		BudgetItemID  string
		Amount        float64
		PostedAt      time.Time
	}
)

const (
	AccountAvailable AccountKind = "available"
	AccountSavings   AccountKind = "savings"
)

func (c CategoryBudget) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	switch c.Type {
	case CategoryExpense, CategoryIncome:
	default:
		return ErrInvalidCategoryT
	}
	return nil
}

func (b BudgetItem) Validate() error {
	if b.UserID == "" {
		return ErrMissingUser
	}
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if b.TargetAmount <= 0 || b.Amount < 0 {
		return ErrInvalidAmount
	}
	if b.Cadence.Kind() == "" {
		return ErrInvalidCadence
	}
	return nil
}

// Period returns the item's current window.
func (b BudgetItem) Period() Period {
	return Period{Start: b.PeriodStart, End: b.PeriodEnd}
}

// Current reports whether the item is the live one of its lineage, i.e. it
// has not been superseded by a rolled-forward successor.
func (b BudgetItem) Current(supersededIDs map[string]struct{}) bool {
	_, superseded := supersededIDs[b.ID]
	return !superseded
}
