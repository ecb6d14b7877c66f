package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"walletwatcher/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width and always UTC so text comparison orders instants.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store owns the wallet database: profile, transactions, categories,
// budgets, savings goals and asset-price samples.
type Store struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for retention and history windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if absent) the database at path and applies pending migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	v, dirty, err := s.queries.SchemaVersion(ctx)
	if err != nil {
		return 0, wrap("schema version", err)
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

// InitProfile creates the singleton profile and seeds the default categories
// in one transaction.
func (s *Store) InitProfile(ctx context.Context, username, countryCode string) (*core.Profile, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	params := CreateProfileParams{
		Username:     strings.TrimSpace(username),
		CountryCode:  countryCode,
		CurrencyCode: core.CurrencyFor(countryCode),
		Theme:        string(core.ThemeLight),
	}

	err := s.inTx(ctx, "init profile", func(q *Queries) error {
		n, err := q.CreateProfile(ctx, params)
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrAlreadyInitialized
		}
		for _, name := range core.DefaultCategories {
			if _, err := q.CreateCategory(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Profile initialized",
		"username", params.Username,
		"country", params.CountryCode,
		"currency", params.CurrencyCode,
		"categories", len(core.DefaultCategories))

	return &core.Profile{
		ID:           core.ProfileID,
		Username:     params.Username,
		CountryCode:  params.CountryCode,
		CurrencyCode: params.CurrencyCode,
		Theme:        core.ThemeLight,
	}, nil
}

// GetProfile returns nil without error when no profile exists.
func (s *Store) GetProfile(ctx context.Context) (*core.Profile, error) {
	p, err := s.queries.GetProfile(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get profile", err)
	}
	return &core.Profile{
		ID:           p.ID,
		Username:     p.Username,
		CountryCode:  p.CountryCode,
		CurrencyCode: p.CurrencyCode,
		Theme:        core.Theme(p.Theme),
	}, nil
}

func (s *Store) UpdateTheme(ctx context.Context, theme core.Theme) error {
	n, err := s.queries.UpdateProfileTheme(ctx, string(theme))
	if err != nil {
		return wrap("update theme", err)
	}
	if n == 0 {
		return core.ErrProfileNotFound
	}
	return nil
}

func (s *Store) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row, err := s.queries.CreateTransaction(ctx, CreateTransactionParams{
		OccurredAt:  formatTime(tx.Date),
		Description: tx.Description,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		CategoryID:  tx.CategoryID,
	})
	if err != nil {
		return core.Transaction{}, wrap("add transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", row.ID,
		"type", row.Type,
		"amount", row.Amount,
		"category_id", row.CategoryID)

	return toTransaction(row)
}

// GetAllTransactions returns every transaction, newest first.
func (s *Store) GetAllTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.queries.ListTransactions(ctx)
	if err != nil {
		return nil, wrap("list transactions", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := toTransaction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DeleteTransactionsOlderThan removes transactions dated strictly before now-days.
// Matching ids are collected first and deleted in a second pass.
func (s *Store) DeleteTransactionsOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := formatTime(s.now().Add(-time.Duration(days) * 24 * time.Hour))

	deleted := 0
	err := s.inTx(ctx, "purge transactions", func(q *Queries) error {
		ids, err := q.ListTransactionIDsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, id := range ids {
			n, err := q.DeleteTransaction(ctx, id)
			if err != nil {
				return err
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		slog.InfoContext(ctx, "Old transactions deleted", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// AddCategory does not enforce unique names.
func (s *Store) AddCategory(ctx context.Context, name string) (core.Category, error) {
	c, err := s.queries.CreateCategory(ctx, strings.TrimSpace(name))
	if err != nil {
		return core.Category{}, wrap("add category", err)
	}
	return core.Category{ID: c.ID, Name: c.Name}, nil
}

func (s *Store) GetAllCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, wrap("list categories", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Category{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// ImportTransactions inserts entries in one transaction, resolving category
// names case-insensitively against existing categories and creating the
// missing ones. The first category with a matching name wins.
func (s *Store) ImportTransactions(ctx context.Context, entries []core.ImportEntry) (imported, created int, err error) {
	err = s.inTx(ctx, "import transactions", func(q *Queries) error {
		cats, err := q.ListCategories(ctx)
		if err != nil {
			return err
		}
		ids := make(map[string]int64, len(cats))
		for _, c := range cats {
			if _, ok := ids[core.CategoryKey(c.Name)]; !ok {
				ids[core.CategoryKey(c.Name)] = c.ID
			}
		}

		for _, e := range entries {
			key := core.CategoryKey(e.CategoryName)
			id, ok := ids[key]
			if !ok {
				c, err := q.CreateCategory(ctx, strings.TrimSpace(e.CategoryName))
				if err != nil {
					return err
				}
				id = c.ID
				ids[key] = id
				created++
			}
			if _, err := q.CreateTransaction(ctx, CreateTransactionParams{
				OccurredAt:  formatTime(e.Date),
				Description: e.Description,
				Amount:      e.Amount,
				Type:        string(e.Type),
				CategoryID:  id,
			}); err != nil {
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	slog.InfoContext(ctx, "Transactions imported", "count", imported, "created_categories", created)
	return imported, created, nil
}

// SetBudget upserts the budget for a category. Completion survives only when
// both amount and recurrence are unchanged.
func (s *Store) SetBudget(ctx context.Context, categoryID int64, amount float64, recurrence core.Recurrence) (core.Budget, error) {
	b := core.Budget{CategoryID: categoryID, Amount: amount, Recurrence: recurrence}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.inTx(ctx, "set budget", func(q *Queries) error {
		existing, err := q.GetBudget(ctx, categoryID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			b.IsCompleted = false
		case err != nil:
			return err
		default:
			b.IsCompleted = existing.IsCompleted != 0 &&
				existing.Amount == amount &&
				existing.Recurrence == string(recurrence)
		}
		return q.UpsertBudget(ctx, UpsertBudgetParams{
			CategoryID:  b.CategoryID,
			Amount:      b.Amount,
			Recurrence:  string(b.Recurrence),
			IsCompleted: boolToInt(b.IsCompleted),
		})
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget set",
		"category_id", categoryID,
		"amount", amount,
		"recurrence", recurrence,
		"completed", b.IsCompleted)
	return b, nil
}

// MarkBudgetComplete latches completion for one-time budgets only; recurring
// budgets are evaluated per window and the call is a no-op for them.
func (s *Store) MarkBudgetComplete(ctx context.Context, categoryID int64) error {
	return s.inTx(ctx, "mark budget complete", func(q *Queries) error {
		b, err := q.GetBudget(ctx, categoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrBudgetNotFound
		}
		if err != nil {
			return err
		}
		if core.Recurrence(b.Recurrence) != core.OneTime {
			return nil
		}
		return q.MarkBudgetCompleted(ctx, categoryID)
	})
}

func (s *Store) GetAllBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.queries.ListBudgets(ctx)
	if err != nil {
		return nil, wrap("list budgets", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Budget{
			CategoryID:  r.CategoryID,
			Amount:      r.Amount,
			Recurrence:  core.Recurrence(r.Recurrence),
			IsCompleted: r.IsCompleted != 0,
		})
	}
	return out, nil
}

// AddSavingsGoal ignores any caller-supplied progress: new goals start at zero, incomplete.
func (s *Store) AddSavingsGoal(ctx context.Context, goal core.SavingsGoal) (core.SavingsGoal, error) {
	if err := goal.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	row, err := s.queries.CreateSavingsGoal(ctx, CreateSavingsGoalParams{
		Name:         strings.TrimSpace(goal.Name),
		TargetAmount: goal.TargetAmount,
		Recurrence:   string(goal.Recurrence),
	})
	if err != nil {
		return core.SavingsGoal{}, wrap("add savings goal", err)
	}
	slog.InfoContext(ctx, "Savings goal created", "id", row.ID, "name", row.Name, "target", row.TargetAmount)
	return toSavingsGoal(row), nil
}

// AddFundsToSavingsGoal increments the accumulated amount and returns the
// updated goal. A one-time goal reaching its target is latched complete in the
// same transaction.
func (s *Store) AddFundsToSavingsGoal(ctx context.Context, goalID int64, amount float64) (core.SavingsGoal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return core.SavingsGoal{}, &core.ValidationError{Field: "amount", Message: core.ErrInvalidAmount.Error()}
	}
	var goal core.SavingsGoal
	err := s.inTx(ctx, "add funds", func(q *Queries) error {
		row, err := q.AddSavingsGoalFunds(ctx, amount, goalID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrGoalNotFound
		}
		if err != nil {
			return err
		}
		goal = toSavingsGoal(row)
		if goal.Recurrence == core.OneTime && !goal.IsCompleted && goal.CurrentAmount >= goal.TargetAmount {
			if err := q.MarkSavingsGoalCompleted(ctx, goalID); err != nil {
				return err
			}
			goal.IsCompleted = true
		}
		return nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	slog.InfoContext(ctx, "Funds added to savings goal", "id", goalID, "amount", amount,
		"current", goal.CurrentAmount, "completed", goal.IsCompleted)
	return goal, nil
}

// MarkSavingsGoalComplete follows the same one-time-only latch as budgets.
func (s *Store) MarkSavingsGoalComplete(ctx context.Context, goalID int64) error {
	return s.inTx(ctx, "mark goal complete", func(q *Queries) error {
		g, err := q.GetSavingsGoal(ctx, goalID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrGoalNotFound
		}
		if err != nil {
			return err
		}
		if core.Recurrence(g.Recurrence) != core.OneTime {
			return nil
		}
		return q.MarkSavingsGoalCompleted(ctx, goalID)
	})
}

func (s *Store) GetAllSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := s.queries.ListSavingsGoals(ctx)
	if err != nil {
		return nil, wrap("list savings goals", err)
	}
	out := make([]core.SavingsGoal, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSavingsGoal(r))
	}
	return out, nil
}

// AddAssetPriceSamples stores each sample independently. Non-numeric prices and
// duplicate (symbol, timestamp) pairs are skipped; the number stored is returned.
func (s *Store) AddAssetPriceSamples(ctx context.Context, samples []core.AssetPrice) (int, error) {
	inserted := 0
	for _, p := range samples {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Symbol == "" {
			continue
		}
		n, err := s.queries.InsertAssetPrice(ctx, InsertAssetPriceParams{
			Symbol:    p.Symbol,
			SampledAt: formatTime(p.Date),
			Price:     p.Price,
		})
		if err != nil {
			return inserted, wrap("add asset price", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// GetAssetHistory returns samples for symbol within the trailing days window, newest first.
func (s *Store) GetAssetHistory(ctx context.Context, symbol string, days int) ([]core.AssetPrice, error) {
	if days <= 0 {
		days = 1
	}
	since := formatTime(s.now().Add(-time.Duration(days) * 24 * time.Hour))
	rows, err := s.queries.ListAssetPricesSince(ctx, symbol, since)
	if err != nil {
		return nil, wrap("asset history", err)
	}
	out := make([]core.AssetPrice, 0, len(rows))
	for _, r := range rows {
		at, err := parseTime(r.SampledAt)
		if err != nil {
			return nil, wrap("asset history", err)
		}
		out = append(out, core.AssetPrice{ID: r.ID, Symbol: r.Symbol, Date: at, Price: r.Price})
	}
	return out, nil
}

// ClearAll empties every collection in one transaction, leaving the store ready
// for a fresh InitProfile.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.inTx(ctx, "clear all", func(q *Queries) error {
		return q.ClearAll(ctx)
	}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "All wallet data cleared")
	return nil
}

// inTx runs fn in a transaction. Domain sentinels pass through unchanged;
// engine failures are wrapped as *core.StorageError.
func (s *Store) inTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	if err := fn(s.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		if isDomainError(err) {
			return err
		}
		return wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(op, err)
	}
	return nil
}

func isDomainError(err error) bool {
	return errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrAlreadyExists) || core.IsValidation(err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &core.StorageError{Op: op, Err: err}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toTransaction(r Transaction) (core.Transaction, error) {
	at, err := parseTime(r.OccurredAt)
	if err != nil {
		return core.Transaction{}, wrap("decode transaction", err)
	}
	return core.Transaction{
		ID:          r.ID,
		Date:        at,
		Description: r.Description,
		Amount:      r.Amount,
		Type:        core.TxType(r.Type),
		CategoryID:  r.CategoryID,
	}, nil
}

func toSavingsGoal(r SavingsGoal) core.SavingsGoal {
	return core.SavingsGoal{
		ID:            r.ID,
		Name:          r.Name,
		TargetAmount:  r.TargetAmount,
		CurrentAmount: r.CurrentAmount,
		Recurrence:    core.Recurrence(r.Recurrence),
		IsCompleted:   r.IsCompleted != 0,
	}
}
