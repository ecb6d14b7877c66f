package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/amqp"
	"walletwatcher/internal/core"
	"walletwatcher/internal/importer"
	"walletwatcher/internal/log"
	"walletwatcher/internal/markers"
	"walletwatcher/internal/scheduler"
	"walletwatcher/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
}

func (p *recordingPublisher) Publish(_ context.Context, kind string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	return nil
}

func (p *recordingPublisher) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.kinds...)
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "wallet.db"),
		storage.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newWallet(t *testing.T, store Store, opts ...Option) *Wallet {
	t.Helper()
	base := []Option{
		WithLogger(log.Discard()),
		WithClock(func() time.Time { return testNow }),
		WithCalendar(aggregate.Calendar{WeekStart: time.Sunday, Location: time.UTC}),
	}
	return NewWallet(store, append(base, opts...)...)
}

func onboarded(t *testing.T) (*Wallet, *storage.Store) {
	t.Helper()
	s := openStore(t)
	w := newWallet(t, s)
	_, err := w.Onboard(context.Background(), "Alice", "IN")
	require.NoError(t, err)
	return w, s
}

func TestLoad_WithoutProfile(t *testing.T) {
	w := newWallet(t, openStore(t))

	err := w.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.Nil(t, w.Snapshot().Profile)
}

func TestOnboard(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	w := newWallet(t, openStore(t), WithPublisher(pub))

	_, err := w.Onboard(ctx, " A ", "IN")
	assert.True(t, core.IsValidation(err))

	p, err := w.Onboard(ctx, "  Alice ", "in")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Username)
	assert.Equal(t, "INR", p.CurrencyCode)

	snap := w.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Len(t, snap.Categories, len(core.DefaultCategories))
	assert.Equal(t, []string{amqp.EventProfileCreated}, pub.seen())

	_, err = w.Onboard(ctx, "Bob", "US")
	assert.ErrorIs(t, err, core.ErrAlreadyInitialized)
	assert.Equal(t, "Alice", w.Snapshot().Profile.Username)
}

func TestAddTransaction_VisibleInNextSnapshot(t *testing.T) {
	w, _ := onboarded(t)
	ctx := context.Background()
	cat := w.Snapshot().Categories[0]

	tx, err := w.AddTransaction(ctx, core.Transaction{
		Date: testNow, Description: "Groceries", Amount: 42, Type: core.Expense, CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)

	snap := w.Snapshot()
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, tx.ID, snap.Transactions[0].ID)

	_, err = w.AddTransaction(ctx, core.Transaction{Date: testNow, Description: "", Amount: 1, Type: core.Expense})
	assert.True(t, core.IsValidation(err))
	assert.Len(t, w.Snapshot().Transactions, 1)
}

type failingStore struct {
	*storage.Store
	err error
}

func (f failingStore) AddTransaction(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, f.err
}

func TestMutationFailureLeavesSnapshotUnchanged(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	_, err := s.InitProfile(ctx, "Alice", "US")
	require.NoError(t, err)

	boom := &core.StorageError{Op: "add transaction", Err: errors.New("disk full")}
	w := newWallet(t, failingStore{Store: s, err: boom})
	require.NoError(t, w.Load(ctx))
	before := w.Snapshot()

	_, err = w.AddTransaction(ctx, core.Transaction{Date: testNow, Description: "x", Amount: 1, Type: core.Income})
	var se *core.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, before, w.Snapshot())
}

func TestAddFundsAutoCompletesOneTimeGoals(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := openStore(t)
	w := newWallet(t, s, WithPublisher(pub))
	_, err := w.Onboard(ctx, "Alice", "US")
	require.NoError(t, err)

	bike, err := w.AddSavingsGoal(ctx, "Bike", 100, "")
	require.NoError(t, err)
	assert.Equal(t, core.OneTime, bike.Recurrence)

	_, err = w.AddFundsToSavingsGoal(ctx, bike.ID, 60)
	require.NoError(t, err)
	bike, err = w.AddFundsToSavingsGoal(ctx, bike.ID, 50)
	require.NoError(t, err)
	assert.InDelta(t, 110, bike.CurrentAmount, 1e-9)
	assert.True(t, bike.IsCompleted)
	assert.Contains(t, pub.seen(), amqp.EventGoalCompleted)

	// Topping up an already completed goal does not announce completion again.
	_, err = w.AddFundsToSavingsGoal(ctx, bike.ID, 5)
	require.NoError(t, err)
	completions := 0
	for _, k := range pub.seen() {
		if k == amqp.EventGoalCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, completions)

	rent, err := w.AddSavingsGoal(ctx, "Rent", 10, core.Monthly)
	require.NoError(t, err)
	rent, err = w.AddFundsToSavingsGoal(ctx, rent.ID, 20)
	require.NoError(t, err)
	assert.False(t, rent.IsCompleted)

	_, err = w.AddFundsToSavingsGoal(ctx, rent.ID, 0)
	assert.True(t, core.IsValidation(err))
	_, err = w.AddFundsToSavingsGoal(ctx, 999, 5)
	assert.ErrorIs(t, err, core.ErrNotFound)

	goals := w.Snapshot().SavingsGoals
	require.Len(t, goals, 2)
	assert.True(t, goals[0].IsCompleted)
}

func TestBudgets(t *testing.T) {
	w, _ := onboarded(t)
	ctx := context.Background()
	cat := w.Snapshot().Categories[1]

	_, err := w.SetBudget(ctx, cat.ID, -1, core.Monthly)
	assert.True(t, core.IsValidation(err))

	_, err = w.SetBudget(ctx, cat.ID, 200, core.OneTime)
	require.NoError(t, err)
	require.NoError(t, w.MarkBudgetComplete(ctx, cat.ID))

	budgets := w.Snapshot().Budgets
	require.Len(t, budgets, 1)
	assert.True(t, budgets[0].IsCompleted)

	assert.ErrorIs(t, w.MarkBudgetComplete(ctx, 12345), core.ErrBudgetNotFound)
}

func TestUpdateTheme(t *testing.T) {
	w, _ := onboarded(t)
	require.NoError(t, w.UpdateTheme(context.Background(), core.ThemeDark))
	assert.Equal(t, core.ThemeDark, w.Snapshot().Profile.Theme)
	assert.True(t, core.IsValidation(w.UpdateTheme(context.Background(), core.Theme("sepia"))))
}

func TestLoadRunsMaintenanceOncePerDay(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	_, err := s.InitProfile(ctx, "Alice", "US")
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, core.Transaction{
		Date: testNow.AddDate(-2, 0, 0), Description: "ancient", Amount: 5, Type: core.Expense, CategoryID: 1,
	})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	daily := scheduler.NewDailyMaintenance(s, markers.NewMemoryStore(),
		scheduler.WithClock(func() time.Time { return testNow }),
		scheduler.WithLocation(time.UTC),
		scheduler.WithLogger(log.Discard()))
	w := newWallet(t, s, WithMaintenance(daily), WithPublisher(pub))

	require.NoError(t, w.Load(ctx))
	require.NoError(t, w.Load(ctx))

	assert.Empty(t, w.Snapshot().Transactions)
	assert.Equal(t, []string{amqp.EventMaintenanceRan}, pub.seen())
}

func TestQRExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, srcStore := onboarded(t)
	pets, err := srcStore.AddCategory(ctx, "Pets")
	require.NoError(t, err)
	require.NoError(t, src.Load(ctx))
	income := src.Snapshot().Categories[7]

	vet, err := src.AddTransaction(ctx, core.Transaction{Date: testNow, Description: "Vet", Amount: 80, Type: core.Expense, CategoryID: pets.ID})
	require.NoError(t, err)
	_, err = src.AddTransaction(ctx, core.Transaction{Date: testNow.Add(-time.Hour), Description: "Salary", Amount: 3000, Type: core.Income, CategoryID: income.ID})
	require.NoError(t, err)

	payload, err := importer.EncodeReport(src.ExportRows())
	require.NoError(t, err)
	rows, err := importer.DecodeReport(payload)
	require.NoError(t, err)

	dst, _ := onboarded(t)
	res, err := dst.ImportTransactions(ctx, "qr", rows)
	require.NoError(t, err)
	assert.Equal(t, core.ImportResult{Imported: 2, CreatedCategories: 1}, res)

	snap := dst.Snapshot()
	assert.Len(t, snap.Categories, len(core.DefaultCategories)+1)
	got := aggregate.JoinCategories(snap.Transactions, snap.Categories)
	require.Len(t, got, 2)
	assert.Equal(t, "Vet", got[0].Description)
	assert.Equal(t, "Pets", got[0].CategoryName)
	assert.True(t, vet.Date.Equal(got[0].Date))
	assert.InDelta(t, 80, got[0].Amount, 1e-9)
	assert.Equal(t, "Income", got[1].CategoryName)
	assert.Equal(t, core.Income, got[1].Type)
}

func TestImportSkipsBadRows(t *testing.T) {
	w, _ := onboarded(t)
	res, err := w.ImportTransactions(context.Background(), "xlsx", []importer.Row{
		{Date: "2024-03-01", Description: "Lunch", Amount: "12.50", Category: "dining out", Type: "Expense"},
		{Date: "2024-03-01", Description: "Bad", Amount: "abc", Category: "x", Type: "expense"},
		{Date: "not a date", Description: "Bad", Amount: "1", Category: "x", Type: "expense"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.ImportResult{Imported: 1, Skipped: 2}, res)
	assert.Len(t, w.Snapshot().Categories, len(core.DefaultCategories))
}

func TestViewAndStatement(t *testing.T) {
	w, _ := onboarded(t)
	ctx := context.Background()
	cats := w.Snapshot().Categories

	_, err := w.SetBudget(ctx, cats[0].ID, 100, core.Monthly)
	require.NoError(t, err)
	for _, tx := range []core.Transaction{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Description: "Food", Amount: 30, Type: core.Expense, CategoryID: cats[0].ID},
		{Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Description: "Pay", Amount: 500, Type: core.Income, CategoryID: cats[7].ID},
		{Date: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), Description: "Old food", Amount: 70, Type: core.Expense, CategoryID: cats[0].ID},
	} {
		_, err := w.AddTransaction(ctx, tx)
		require.NoError(t, err)
	}

	v := w.View(core.Month, aggregate.Monthly, testNow)
	assert.Equal(t, "INR", v.Currency)
	assert.InDelta(t, 500, v.Overview.Income, 1e-9)
	assert.InDelta(t, 30, v.Overview.Expense, 1e-9)
	require.Len(t, v.Budgets, 1)
	assert.InDelta(t, 30, v.Budgets[0].Spent, 1e-9)
	assert.Len(t, v.Recent, 2)
	assert.Equal(t, []aggregate.SeriesPoint{{Key: "2024-02", Amount: 70}, {Key: "2024-03", Amount: 30}}, v.Spending)

	st, err := w.Statement(core.Month, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Alice", st.Username)
	assert.Len(t, st.Rows, 2)
}

func TestViewSpendingFollowsCalendarZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	s := openStore(t)
	w := newWallet(t, s, WithCalendar(aggregate.Calendar{WeekStart: time.Sunday, Location: ist}))
	ctx := context.Background()
	_, err := w.Onboard(ctx, "Alice", "IN")
	require.NoError(t, err)
	cats := w.Snapshot().Categories

	_, err = w.AddTransaction(ctx, core.Transaction{
		Date: time.Date(2024, 3, 1, 2, 0, 0, 0, ist), Description: "Chai", Amount: 10, Type: core.Expense, CategoryID: cats[0].ID,
	})
	require.NoError(t, err)

	v := w.View(core.Month, aggregate.Monthly, time.Date(2024, 3, 15, 12, 0, 0, 0, ist))
	assert.InDelta(t, 10, v.Overview.Expense, 1e-9)
	assert.Equal(t, []aggregate.SeriesPoint{{Key: "2024-03", Amount: 10}}, v.Spending)
}

func TestAssets(t *testing.T) {
	w, s := onboarded(t)
	ctx := context.Background()
	_, err := s.AddAssetPriceSamples(ctx, []core.AssetPrice{
		{Symbol: "GOLD", Date: testNow.Add(-2 * time.Hour), Price: 100},
		{Symbol: "GOLD", Date: testNow.Add(-time.Hour), Price: 110},
	})
	require.NoError(t, err)

	assets, err := w.Assets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, assets, len(aggregate.TrackedAssets))
	assert.Equal(t, "GOLD", assets[0].Symbol)
	assert.InDelta(t, 10, assets[0].ChangePercent, 1e-9)
	assert.Empty(t, assets[3].History)
}

func TestLogout(t *testing.T) {
	w, s := onboarded(t)
	ctx := context.Background()
	require.NoError(t, w.Logout(ctx))
	assert.Nil(t, w.Snapshot().Profile)

	p, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, w.Load(ctx), ErrNoProfile)
}
