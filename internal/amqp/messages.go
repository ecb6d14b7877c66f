package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kinds published after successful wallet mutations and background runs.
const (
	EventProfileCreated       = "profile.created"
	EventThemeUpdated         = "profile.theme_updated"
	EventTransactionAdded     = "transaction.added"
	EventTransactionsImported = "transactions.imported"
	EventBudgetSet            = "budget.set"
	EventBudgetCompleted      = "budget.completed"
	EventGoalAdded            = "goal.added"
	EventGoalFunded           = "goal.funded"
	EventGoalCompleted        = "goal.completed"
	EventDataCleared          = "wallet.cleared"
	EventMaintenanceRan       = "maintenance.ran"
	EventPricesRefreshed      = "prices.refreshed"
)

// WalletEvent is the envelope written to the exchange.
type WalletEvent struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func NewWalletEvent(kind string, payload any) (*WalletEvent, error) {
	ev := &WalletEvent{ID: uuid.New(), Kind: kind, OccurredAt: time.Now().UTC()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		ev.Payload = b
	}
	return ev, nil
}

func (e *WalletEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func WalletEventFromJSON(data []byte) (*WalletEvent, error) {
	var ev WalletEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("event without kind")
	}
	return &ev, nil
}
