package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds routed through the budget journal queue.
const (
	KindBudgetItemCreated = "budget_item_created"
	KindTransferPosted    = "transfer_posted"
)

// JournalMessage represents a lightweight journal event. It carries only
// identifiers; the worker fetches the full record from the database.
type JournalMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewJournalMessage creates a journal message for the given record.
func NewJournalMessage(kind, id, userID string) *JournalMessage {
	return &JournalMessage{
		Kind:      kind,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *JournalMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JournalMessageFromJSON creates a message from JSON bytes
func JournalMessageFromJSON(data []byte) (*JournalMessage, error) {
	var msg JournalMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
