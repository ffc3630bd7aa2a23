package amqp

import (
	"encoding/json"
	"time"
)

// Reasons carried by LedgerChangedMessage.
const (
	ReasonTransactionCreated = "transaction_created"
	ReasonTransactionUpdated = "transaction_updated"
	ReasonTransactionDeleted = "transaction_deleted"
	ReasonBudgetSet          = "budget_set"
	ReasonCategoryBudgetSet  = "category_budget_set"
	ReasonDatasetLoaded      = "dataset_loaded"
	ReasonResync             = "resync"
)

// LedgerChangedMessage tells the worker that a user's ledger changed.
// It carries no data; the worker reloads the user's tables from storage.
type LedgerChangedMessage struct {
	UserID    int64     `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(userID int64, reason string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
