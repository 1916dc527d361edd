package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEntryMessage(t *testing.T) {
	msg := NewLedgerEntryMessage("expense", 12345)

	if msg.Kind != "expense" {
		t.Errorf("NewLedgerEntryMessage() Kind = %v, want expense", msg.Kind)
	}
	if msg.ID != 12345 {
		t.Errorf("NewLedgerEntryMessage() ID = %v, want 12345", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewLedgerEntryMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewLedgerEntryMessage() Timestamp should be recent")
	}
}

func TestLedgerEntryMessage_JSON(t *testing.T) {
	timestamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerEntryMessage{
		Kind:      "income",
		ID:        42,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEntryMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerEntryMessageFromJSON() error = %v", err)
	}

	if parsed.Kind != msg.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, msg.Kind)
	}
	if parsed.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsed.ID, msg.ID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEntryMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"kind": "expense", "id": "not_a_number"}`)

	if _, err := LedgerEntryMessageFromJSON(invalidJSON); err == nil {
		t.Error("LedgerEntryMessageFromJSON() should fail with invalid JSON")
	}
}
