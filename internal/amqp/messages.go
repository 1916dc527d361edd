package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEntryMessage announces one committed ledger entry to the
// archive pipeline. It carries only the entry's identity; the worker
// fetches the full row from the database before appending it.
type LedgerEntryMessage struct {
	Kind      string    `json:"kind"` // "income" or "expense"
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEntryMessage creates an announcement for an entry.
func NewLedgerEntryMessage(kind string, id int64) *LedgerEntryMessage {
	return &LedgerEntryMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEntryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEntryMessageFromJSON creates a message from JSON bytes
func LedgerEntryMessageFromJSON(data []byte) (*LedgerEntryMessage, error) {
	var msg LedgerEntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
