package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/amqp"
	"walletwatcher/internal/core"
	"walletwatcher/internal/importer"
	"walletwatcher/internal/log"
	"walletwatcher/internal/scheduler"
)

// ErrNoProfile is returned by Load when the user has not onboarded yet.
// It is a routing signal, not a failure.
var ErrNoProfile = errors.New("no profile")

// MinUsernameLength applies after trimming.
const MinUsernameLength = 2

// Store is the persistence surface the facade drives.
type Store interface {
	InitProfile(ctx context.Context, username, countryCode string) (*core.Profile, error)
	GetProfile(ctx context.Context) (*core.Profile, error)
	UpdateTheme(ctx context.Context, theme core.Theme) error
	AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]core.Transaction, error)
	GetAllCategories(ctx context.Context) ([]core.Category, error)
	ImportTransactions(ctx context.Context, entries []core.ImportEntry) (int, int, error)
	SetBudget(ctx context.Context, categoryID int64, amount float64, recurrence core.Recurrence) (core.Budget, error)
	MarkBudgetComplete(ctx context.Context, categoryID int64) error
	GetAllBudgets(ctx context.Context) ([]core.Budget, error)
	AddSavingsGoal(ctx context.Context, goal core.SavingsGoal) (core.SavingsGoal, error)
	AddFundsToSavingsGoal(ctx context.Context, goalID int64, amount float64) (core.SavingsGoal, error)
	MarkSavingsGoalComplete(ctx context.Context, goalID int64) error
	GetAllSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error)
	GetAssetHistory(ctx context.Context, symbol string, days int) ([]core.AssetPrice, error)
	ClearAll(ctx context.Context) error
}

// Maintenance runs the once-a-day housekeeping before each full load.
type Maintenance interface {
	RunDailyTasks(ctx context.Context) scheduler.DailyResult
}

// EventPublisher receives a notification after every committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, kind string, payload any) error
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

// Snapshot is the in-memory copy of every collection the UI renders.
type Snapshot struct {
	Profile      *core.Profile      `json:"profile"`
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	Budgets      []core.Budget      `json:"budgets"`
	SavingsGoals []core.SavingsGoal `json:"savingsGoals"`
	LoadedAt     time.Time          `json:"loadedAt"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.Transactions = append([]core.Transaction(nil), s.Transactions...)
	out.Categories = append([]core.Category(nil), s.Categories...)
	out.Budgets = append([]core.Budget(nil), s.Budgets...)
	out.SavingsGoals = append([]core.SavingsGoal(nil), s.SavingsGoals...)
	return out
}

// Wallet owns the snapshot and serialises every mutate-then-reload sequence,
// so a completed mutation is visible in the next Snapshot call.
type Wallet struct {
	store       Store
	maintenance Maintenance
	events      EventPublisher
	logger      *log.Logger
	calendar    aggregate.Calendar
	now         func() time.Time

	mu     sync.Mutex
	snapMu sync.RWMutex
	snap   Snapshot
}

type Option func(*Wallet)

func WithMaintenance(m Maintenance) Option { return func(w *Wallet) { w.maintenance = m } }

func WithPublisher(p EventPublisher) Option {
	return func(w *Wallet) {
		if p != nil {
			w.events = p
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *Wallet) {
		if l != nil {
			w.logger = l.WithComponent(log.ComponentFacade)
		}
	}
}

func WithCalendar(c aggregate.Calendar) Option { return func(w *Wallet) { w.calendar = c } }

func WithClock(now func() time.Time) Option { return func(w *Wallet) { w.now = now } }

func NewWallet(store Store, opts ...Option) *Wallet {
	w := &Wallet{
		store:    store,
		events:   NoopPublisher{},
		logger:   log.Discard(),
		calendar: aggregate.DefaultCalendar,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Load runs daily maintenance and refreshes the snapshot from the store.
func (w *Wallet) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.maintenance != nil {
		if res := w.maintenance.RunDailyTasks(ctx); res.Ran {
			w.publish(ctx, amqp.EventMaintenanceRan, map[string]any{"day": res.Day, "deleted": res.Deleted})
		}
	}
	return w.reload(ctx)
}

func (w *Wallet) reload(ctx context.Context) error {
	profile, err := w.store.GetProfile(ctx)
	if err != nil {
		w.reset()
		w.logger.ErrorContext(ctx, "Failed to load profile", log.FieldError, err, log.FieldOperation, log.OpLoad)
		return err
	}
	if profile == nil {
		w.reset()
		return ErrNoProfile
	}

	next := Snapshot{Profile: profile}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		next.Transactions, err = w.store.GetAllTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Categories, err = w.store.GetAllCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Budgets, err = w.store.GetAllBudgets(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.SavingsGoals, err = w.store.GetAllSavingsGoals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		w.reset()
		w.logger.ErrorContext(ctx, "Failed to load wallet data", log.FieldError, err, log.FieldOperation, log.OpLoad)
		return err
	}
	next.LoadedAt = w.now()

	w.snapMu.Lock()
	w.snap = next
	w.snapMu.Unlock()
	return nil
}

func (w *Wallet) reset() {
	w.snapMu.Lock()
	w.snap = Snapshot{}
	w.snapMu.Unlock()
}

// Snapshot returns a copy safe to read without locks.
func (w *Wallet) Snapshot() Snapshot {
	w.snapMu.RLock()
	defer w.snapMu.RUnlock()
	return w.snap.clone()
}

// mutate runs op against the store and reloads on success. On failure the
// snapshot is untouched and the error is returned for the caller to surface.
func (w *Wallet) mutate(ctx context.Context, name string, op func(ctx context.Context) error) error {
	return w.mutateWith(ctx, log.NewFields().WithOperation(name), op)
}

// mutateWith is mutate with extra log fields; fields must carry the operation.
func (w *Wallet) mutateWith(ctx context.Context, fields log.LogFields, op func(ctx context.Context) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := op(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Wallet update failed", fields.WithError(err).ToSlice()...)
		return err
	}
	w.logger.InfoContext(ctx, "Wallet updated", fields.ToSlice()...)
	if err := w.reload(ctx); err != nil && !errors.Is(err, ErrNoProfile) {
		w.logger.WarnContext(ctx, "Reload after update failed", fields.WithError(err).ToSlice()...)
	}
	return nil
}

func (w *Wallet) publish(ctx context.Context, kind string, payload any) {
	if err := w.events.Publish(ctx, kind, payload); err != nil {
		w.logger.WarnContext(ctx, "Event not published", log.FieldEventKind, kind, log.FieldError, err)
	}
}

// Onboard creates the singleton profile with default categories.
func (w *Wallet) Onboard(ctx context.Context, username, countryCode string) (*core.Profile, error) {
	username = strings.TrimSpace(username)
	if len([]rune(username)) < MinUsernameLength {
		return nil, &core.ValidationError{Field: "username", Message: "must be at least 2 characters"}
	}
	if strings.TrimSpace(countryCode) == "" {
		return nil, &core.ValidationError{Field: "country", Message: "country is required"}
	}

	var profile *core.Profile
	err := w.mutate(ctx, "onboard", func(ctx context.Context) (err error) {
		profile, err = w.store.InitProfile(ctx, username, countryCode)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.publish(ctx, amqp.EventProfileCreated, profile)
	return profile, nil
}

func (w *Wallet) UpdateTheme(ctx context.Context, theme core.Theme) error {
	if theme != core.ThemeLight && theme != core.ThemeDark {
		return &core.ValidationError{Field: "theme", Message: core.ErrInvalidTheme.Error()}
	}
	if err := w.mutate(ctx, "update theme", func(ctx context.Context) error {
		return w.store.UpdateTheme(ctx, theme)
	}); err != nil {
		return err
	}
	w.publish(ctx, amqp.EventThemeUpdated, map[string]any{"theme": theme})
	return nil
}

func (w *Wallet) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Description = strings.TrimSpace(tx.Description)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var saved core.Transaction
	fields := log.NewFields().
		WithOperation("add transaction").
		WithTransaction(string(tx.Type), tx.Amount, tx.CategoryID)
	err := w.mutateWith(ctx, fields, func(ctx context.Context) (err error) {
		saved, err = w.store.AddTransaction(ctx, tx)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	w.publish(ctx, amqp.EventTransactionAdded, saved)
	return saved, nil
}

// ImportTransactions validates rows, skipping the unparseable ones, and
// imports the rest atomically.
func (w *Wallet) ImportTransactions(ctx context.Context, source string, rows []importer.Row) (core.ImportResult, error) {
	loc := w.calendar.Location
	if loc == nil {
		loc = time.Local
	}
	entries, skipped := importer.ParseRows(rows, loc)
	result := core.ImportResult{Skipped: skipped}

	if len(entries) > 0 {
		err := w.mutate(ctx, "import transactions", func(ctx context.Context) (err error) {
			result.Imported, result.CreatedCategories, err = w.store.ImportTransactions(ctx, entries)
			return err
		})
		if err != nil {
			return core.ImportResult{}, err
		}
	}

	w.logger.WithComponent(log.ComponentImport).InfoContext(ctx, "Import finished",
		log.FieldImportSrc, source,
		log.FieldImported, result.Imported,
		log.FieldSkipped, result.Skipped)
	if result.Imported > 0 {
		w.publish(ctx, amqp.EventTransactionsImported, map[string]any{"source": source, "result": result})
	}
	return result, nil
}

func (w *Wallet) SetBudget(ctx context.Context, categoryID int64, amount float64, recurrence core.Recurrence) (core.Budget, error) {
	if err := (core.Budget{CategoryID: categoryID, Amount: amount, Recurrence: recurrence}).Validate(); err != nil {
		return core.Budget{}, err
	}

	var b core.Budget
	fields := log.LogFields{log.FieldCategoryID: categoryID, log.FieldAmount: amount, log.FieldRecurrence: string(recurrence)}
	err := w.mutateWith(ctx, fields.WithOperation("set budget"), func(ctx context.Context) (err error) {
		b, err = w.store.SetBudget(ctx, categoryID, amount, recurrence)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}
	w.publish(ctx, amqp.EventBudgetSet, b)
	return b, nil
}

func (w *Wallet) MarkBudgetComplete(ctx context.Context, categoryID int64) error {
	if err := w.mutate(ctx, "mark budget complete", func(ctx context.Context) error {
		return w.store.MarkBudgetComplete(ctx, categoryID)
	}); err != nil {
		return err
	}
	w.publish(ctx, amqp.EventBudgetCompleted, map[string]int64{"categoryId": categoryID})
	return nil
}

// AddSavingsGoal defaults an empty recurrence to one-time.
func (w *Wallet) AddSavingsGoal(ctx context.Context, name string, target float64, recurrence core.Recurrence) (core.SavingsGoal, error) {
	if recurrence == "" {
		recurrence = core.OneTime
	}
	goal := core.SavingsGoal{Name: strings.TrimSpace(name), TargetAmount: target, Recurrence: recurrence}
	if err := goal.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	err := w.mutate(ctx, "add savings goal", func(ctx context.Context) (err error) {
		goal, err = w.store.AddSavingsGoal(ctx, goal)
		return err
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	w.publish(ctx, amqp.EventGoalAdded, goal)
	return goal, nil
}

// AddFundsToSavingsGoal adds a positive amount. The store latches a one-time
// goal that reaches its target in the same transaction.
func (w *Wallet) AddFundsToSavingsGoal(ctx context.Context, goalID int64, amount float64) (core.SavingsGoal, error) {
	if !(amount > 0) {
		return core.SavingsGoal{}, &core.ValidationError{Field: "amount", Message: core.ErrInvalidAmount.Error()}
	}

	var goal core.SavingsGoal
	wasCompleted := false
	for _, g := range w.Snapshot().SavingsGoals {
		if g.ID == goalID {
			wasCompleted = g.IsCompleted
		}
	}
	fields := log.LogFields{log.FieldGoalID: goalID, log.FieldAmount: amount}
	err := w.mutateWith(ctx, fields.WithOperation("add funds"), func(ctx context.Context) (err error) {
		goal, err = w.store.AddFundsToSavingsGoal(ctx, goalID, amount)
		return err
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}

	w.publish(ctx, amqp.EventGoalFunded, map[string]any{"goalId": goalID, "amount": amount, "current": goal.CurrentAmount})
	if goal.IsCompleted && !wasCompleted {
		w.publish(ctx, amqp.EventGoalCompleted, map[string]int64{"goalId": goalID})
	}
	return goal, nil
}

func (w *Wallet) MarkSavingsGoalComplete(ctx context.Context, goalID int64) error {
	if err := w.mutate(ctx, "mark goal complete", func(ctx context.Context) error {
		return w.store.MarkSavingsGoalComplete(ctx, goalID)
	}); err != nil {
		return err
	}
	w.publish(ctx, amqp.EventGoalCompleted, map[string]int64{"goalId": goalID})
	return nil
}

// Logout wipes every collection and empties the snapshot.
func (w *Wallet) Logout(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.ClearAll(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to clear wallet", log.FieldError, err)
		return err
	}
	w.reset()
	w.logger.InfoContext(ctx, "Wallet cleared", log.FieldOperation, "logout")
	w.publish(ctx, amqp.EventDataCleared, nil)
	return nil
}
