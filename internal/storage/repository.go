package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hearth/internal/core"
	applog "hearth/internal/log"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListActiveUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name, active FROM users WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Active); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// EnsureUser inserts the user if it does not exist yet.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, active) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		u.ID, u.DisplayName, u.Active)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

const budgetItemColumns = `b.id, b.user_id, b.amount, b.target_amount,
	b.cadence_kind, b.cadence_day, b.cadence_month, b.cadence_date,
	b.period_start, b.period_end, b.cadence_amount, b.predecessor_id, b.created_at,
	c.id, c.name, c.type, c.sort_order`

func (r *SQLiteRepository) ListCurrentBudgetItems(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetItemColumns+`
		 FROM budget_items b
		 JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM budget_items s WHERE s.predecessor_id = b.id
		   )
		 ORDER BY b.created_at, b.id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list current budget items: %w", err)
	}
	defer rows.Close()

	var items []core.BudgetItem
	for rows.Next() {
		item, err := scanBudgetItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) GetBudgetItem(ctx context.Context, id string) (core.BudgetItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetItemColumns+`
		 FROM budget_items b
		 JOIN categories c ON c.id = b.category_id
		 WHERE b.id = ?`,
		id)
	item, err := scanBudgetItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetItem{}, fmt.Errorf("budget item %s: %w", id, ErrNotFound)
	}
	return item, err
}

func (r *SQLiteRepository) CreateBudgetItem(ctx context.Context, item core.BudgetItem) error {
	var cadenceDate any
	if item.Cadence.Kind() == core.CadenceFixed {
		cadenceDate = item.Cadence.Date().UTC()
	}
	var predecessor any
	if item.PredecessorID != "" {
		predecessor = item.PredecessorID
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_items
		   (id, user_id, category_id, amount, target_amount,
		    cadence_kind, cadence_day, cadence_month, cadence_date,
		    period_start, period_end, cadence_amount, predecessor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Category.ID, item.Amount, item.TargetAmount,
		string(item.Cadence.Kind()), item.Cadence.DayOfMonth(), item.Cadence.Month(), cadenceDate,
		item.PeriodStart.UTC(), item.PeriodEnd.UTC(), item.CadenceAmount, predecessor, createdAt)
	if err != nil {
		return fmt.Errorf("create budget item: %w", err)
	}

	slog.InfoContext(ctx, "Budget item saved to SQLite",
		"id", item.ID,
		applog.FieldUserID, item.UserID,
		applog.FieldCategory, item.Category.Name,
		applog.FieldCadence, item.Cadence.String())

	return nil
}

func (r *SQLiteRepository) UpdateBudgetItemProgress(ctx context.Context, itemID string, amount, cadenceAmount float64, periodStart time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budget_items SET amount = ?, cadence_amount = ?, period_start = ? WHERE id = ?`,
		amount, cadenceAmount, periodStart, itemID)
	if err != nil {
		return fmt.Errorf("update budget item progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("budget item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, sort_order FROM categories
		 WHERE user_id = ? ORDER BY sort_order, name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.CategoryBudget
	for rows.Next() {
		var c core.CategoryBudget
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Order); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.CategoryType(typ)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID string, cat core.CategoryBudget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, type, sort_order) VALUES (?, ?, ?, ?, ?)`,
		cat.ID, userID, cat.Name, string(cat.Type), cat.Order)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, kind, balance FROM accounts
		 WHERE user_id = ? ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var kind string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &kind, &a.Balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Kind = core.AccountKind(kind)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CreateAccount inserts a new account with its opening balance.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, kind, balance) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Balance)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateAccountBalance(ctx context.Context, accountID string, balance float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`,
		balance, accountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, t core.Transfer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transfers (id, user_id, from_account_id, to_account_id, budget_item_id, amount, posted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.FromAccountID, t.ToAccountID, t.BudgetItemID, t.Amount, t.PostedAt.UTC())
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer saved to SQLite",
		"id", t.ID,
		applog.FieldUserID, t.UserID,
		"budget_item_id", t.BudgetItemID,
		applog.FieldAmount, t.Amount)

	return nil
}

func (r *SQLiteRepository) GetTransfer(ctx context.Context, id string) (core.Transfer, error) {
	var t core.Transfer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, from_account_id, to_account_id, budget_item_id, amount, posted_at
		 FROM transfers WHERE id = ?`,
		id).Scan(&t.ID, &t.UserID, &t.FromAccountID, &t.ToAccountID, &t.BudgetItemID, &t.Amount, &t.PostedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transfer{}, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transfer{}, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransfersForItem(ctx context.Context, itemID string, since time.Time) ([]core.Transfer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, from_account_id, to_account_id, budget_item_id, amount, posted_at
		 FROM transfers WHERE budget_item_id = ? AND posted_at >= ?
		 ORDER BY posted_at`,
		itemID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list transfers for item: %w", err)
	}
	defer rows.Close()

	var transfers []core.Transfer
	for rows.Next() {
		var t core.Transfer
		if err := rows.Scan(&t.ID, &t.UserID, &t.FromAccountID, &t.ToAccountID, &t.BudgetItemID, &t.Amount, &t.PostedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudgetItem(row rowScanner) (core.BudgetItem, error) {
	var (
		item        core.BudgetItem
		kind        string
		day, month  int
		cadenceDate sql.NullTime
		predecessor sql.NullString
		catType     string
	)
	err := row.Scan(&item.ID, &item.UserID, &item.Amount, &item.TargetAmount,
		&kind, &day, &month, &cadenceDate,
		&item.PeriodStart, &item.PeriodEnd, &item.CadenceAmount, &predecessor, &item.CreatedAt,
		&item.Category.ID, &item.Category.Name, &catType, &item.Category.Order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BudgetItem{}, err
		}
		return core.BudgetItem{}, fmt.Errorf("scan budget item: %w", err)
	}

	item.Category.Type = core.CategoryType(catType)
	item.PredecessorID = predecessor.String

	cadence, err := core.CadenceFromParts(core.CadenceKind(kind), day, month, cadenceDate.Time)
	if err != nil {
		return core.BudgetItem{}, fmt.Errorf("rebuild cadence for item %s: %w", item.ID, err)
	}
	item.Cadence = cadence

	return item, nil
}
