package storage

import (
	"context"
)

const createProfile = `-- name: CreateProfile :execrows
INSERT INTO profile (id, username, country_code, currency_code, theme)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`

type CreateProfileParams struct {
	Username     string
	CountryCode  string
	CurrencyCode string
	Theme        string
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createProfile,
		arg.Username,
		arg.CountryCode,
		arg.CurrencyCode,
		arg.Theme,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getProfile = `-- name: GetProfile :one
SELECT id, username, country_code, currency_code, theme FROM profile WHERE id = 1
`

func (q *Queries) GetProfile(ctx context.Context) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile)
	var i Profile
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.CountryCode,
		&i.CurrencyCode,
		&i.Theme,
	)
	return i, err
}

const updateProfileTheme = `-- name: UpdateProfileTheme :execrows
UPDATE profile SET theme = ? WHERE id = 1
`

func (q *Queries) UpdateProfileTheme(ctx context.Context, theme string) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateProfileTheme, theme)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name) VALUES (?)
RETURNING id, name
`

func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, name)
	var i Category
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT id, name FROM categories ORDER BY id
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (occurred_at, description, amount, type, category_id)
VALUES (?, ?, ?, ?, ?)
RETURNING id, occurred_at, description, amount, type, category_id
`

type CreateTransactionParams struct {
	OccurredAt  string
	Description string
	Amount      float64
	Type        string
	CategoryID  int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.OccurredAt,
		arg.Description,
		arg.Amount,
		arg.Type,
		arg.CategoryID,
	)
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.OccurredAt,
		&i.Description,
		&i.Amount,
		&i.Type,
		&i.CategoryID,
	)
	return i, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, occurred_at, description, amount, type, category_id
FROM transactions
ORDER BY occurred_at DESC, id DESC
`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.OccurredAt,
			&i.Description,
			&i.Amount,
			&i.Type,
			&i.CategoryID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionIDsBefore = `-- name: ListTransactionIDsBefore :many
SELECT id FROM transactions WHERE occurred_at < ? ORDER BY id
`

func (q *Queries) ListTransactionIDsBefore(ctx context.Context, cutoff string) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionIDsBefore, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getBudget = `-- name: GetBudget :one
SELECT category_id, amount, recurrence, is_completed FROM budgets WHERE category_id = ?
`

func (q *Queries) GetBudget(ctx context.Context, categoryID int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, categoryID)
	var i Budget
	err := row.Scan(
		&i.CategoryID,
		&i.Amount,
		&i.Recurrence,
		&i.IsCompleted,
	)
	return i, err
}

const upsertBudget = `-- name: UpsertBudget :exec
INSERT INTO budgets (category_id, amount, recurrence, is_completed)
VALUES (?, ?, ?, ?)
ON CONFLICT (category_id) DO UPDATE SET
    amount = excluded.amount,
    recurrence = excluded.recurrence,
    is_completed = excluded.is_completed
`

type UpsertBudgetParams struct {
	CategoryID  int64
	Amount      float64
	Recurrence  string
	IsCompleted int64
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) error {
	_, err := q.db.ExecContext(ctx, upsertBudget,
		arg.CategoryID,
		arg.Amount,
		arg.Recurrence,
		arg.IsCompleted,
	)
	return err
}

const markBudgetCompleted = `-- name: MarkBudgetCompleted :exec
UPDATE budgets SET is_completed = 1 WHERE category_id = ?
`

func (q *Queries) MarkBudgetCompleted(ctx context.Context, categoryID int64) error {
	_, err := q.db.ExecContext(ctx, markBudgetCompleted, categoryID)
	return err
}

const listBudgets = `-- name: ListBudgets :many
SELECT category_id, amount, recurrence, is_completed FROM budgets ORDER BY category_id
`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var i Budget
		if err := rows.Scan(
			&i.CategoryID,
			&i.Amount,
			&i.Recurrence,
			&i.IsCompleted,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSavingsGoal = `-- name: CreateSavingsGoal :one
INSERT INTO savings_goals (name, target_amount, current_amount, recurrence, is_completed)
VALUES (?, ?, 0, ?, 0)
RETURNING id, name, target_amount, current_amount, recurrence, is_completed
`

type CreateSavingsGoalParams struct {
	Name         string
	TargetAmount float64
	Recurrence   string
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, arg CreateSavingsGoalParams) (SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx, createSavingsGoal, arg.Name, arg.TargetAmount, arg.Recurrence)
	var i SavingsGoal
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TargetAmount,
		&i.CurrentAmount,
		&i.Recurrence,
		&i.IsCompleted,
	)
	return i, err
}

const getSavingsGoal = `-- name: GetSavingsGoal :one
SELECT id, name, target_amount, current_amount, recurrence, is_completed FROM savings_goals WHERE id = ?
`

func (q *Queries) GetSavingsGoal(ctx context.Context, id int64) (SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx, getSavingsGoal, id)
	var i SavingsGoal
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TargetAmount,
		&i.CurrentAmount,
		&i.Recurrence,
		&i.IsCompleted,
	)
	return i, err
}

const addSavingsGoalFunds = `-- name: AddSavingsGoalFunds :one
UPDATE savings_goals SET current_amount = current_amount + ? WHERE id = ?
RETURNING id, name, target_amount, current_amount, recurrence, is_completed
`

func (q *Queries) AddSavingsGoalFunds(ctx context.Context, amount float64, id int64) (SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx, addSavingsGoalFunds, amount, id)
	var i SavingsGoal
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TargetAmount,
		&i.CurrentAmount,
		&i.Recurrence,
		&i.IsCompleted,
	)
	return i, err
}

const markSavingsGoalCompleted = `-- name: MarkSavingsGoalCompleted :exec
UPDATE savings_goals SET is_completed = 1 WHERE id = ?
`

func (q *Queries) MarkSavingsGoalCompleted(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markSavingsGoalCompleted, id)
	return err
}

const listSavingsGoals = `-- name: ListSavingsGoals :many
SELECT id, name, target_amount, current_amount, recurrence, is_completed FROM savings_goals ORDER BY id
`

func (q *Queries) ListSavingsGoals(ctx context.Context) ([]SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, listSavingsGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SavingsGoal
	for rows.Next() {
		var i SavingsGoal
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.TargetAmount,
			&i.CurrentAmount,
			&i.Recurrence,
			&i.IsCompleted,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertAssetPrice = `-- name: InsertAssetPrice :execrows
INSERT INTO asset_prices (symbol, sampled_at, price) VALUES (?, ?, ?)
ON CONFLICT (symbol, sampled_at) DO NOTHING
`

type InsertAssetPriceParams struct {
	Symbol    string
	SampledAt string
	Price     float64
}

func (q *Queries) InsertAssetPrice(ctx context.Context, arg InsertAssetPriceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertAssetPrice, arg.Symbol, arg.SampledAt, arg.Price)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listAssetPricesSince = `-- name: ListAssetPricesSince :many
SELECT id, symbol, sampled_at, price
FROM asset_prices
WHERE symbol = ? AND sampled_at >= ?
ORDER BY sampled_at DESC
`

func (q *Queries) ListAssetPricesSince(ctx context.Context, symbol, since string) ([]AssetPrice, error) {
	rows, err := q.db.QueryContext(ctx, listAssetPricesSince, symbol, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AssetPrice
	for rows.Next() {
		var i AssetPrice
		if err := rows.Scan(
			&i.ID,
			&i.Symbol,
			&i.SampledAt,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// clearStatements empty every collection; sqlite_sequence resets AUTOINCREMENT ids.
var clearStatements = []string{
	`DELETE FROM transactions`,
	`DELETE FROM budgets`,
	`DELETE FROM savings_goals`,
	`DELETE FROM asset_prices`,
	`DELETE FROM categories`,
	`DELETE FROM profile`,
	`DELETE FROM sqlite_sequence`,
}

func (q *Queries) ClearAll(ctx context.Context) error {
	for _, stmt := range clearStatements {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const currentSchemaVersion = `SELECT version, dirty FROM schema_migrations LIMIT 1`

func (q *Queries) SchemaVersion(ctx context.Context) (int64, bool, error) {
	var version int64
	var dirty bool
	err := q.db.QueryRowContext(ctx, currentSchemaVersion).Scan(&version, &dirty)
	return version, dirty, err
}
