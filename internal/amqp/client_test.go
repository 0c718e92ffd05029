package amqp

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewInvoiceSyncMessage(t *testing.T) {
	msg := NewInvoiceSyncMessage(12345, 2)

	if msg.ID != 12345 {
		t.Errorf("NewInvoiceSyncMessage() ID = %v, want 12345", msg.ID)
	}
	if msg.Version != 2 {
		t.Errorf("NewInvoiceSyncMessage() Version = %v, want 2", msg.Version)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewInvoiceSyncMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewInvoiceSyncMessage() Timestamp should be recent")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Run("sync message", func(t *testing.T) {
		body, err := envelope(MessageTypeSync, &InvoiceSyncMessage{
			ID:        42,
			Version:   3,
			Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("envelope() error = %v", err)
		}

		syncMsg, deleteMsg, err := DecodeEnvelope(body)
		if err != nil {
			t.Fatalf("DecodeEnvelope() error = %v", err)
		}
		if deleteMsg != nil {
			t.Fatal("expected no delete message")
		}
		if syncMsg == nil || syncMsg.ID != 42 || syncMsg.Version != 3 {
			t.Fatalf("unexpected sync message: %+v", syncMsg)
		}
	})

	t.Run("delete message", func(t *testing.T) {
		body, err := envelope(MessageTypeDelete, NewInvoiceDeleteMessage(7, "INV-20240601-001"))
		if err != nil {
			t.Fatalf("envelope() error = %v", err)
		}

		syncMsg, deleteMsg, err := DecodeEnvelope(body)
		if err != nil {
			t.Fatalf("DecodeEnvelope() error = %v", err)
		}
		if syncMsg != nil {
			t.Fatal("expected no sync message")
		}
		if deleteMsg == nil || deleteMsg.ID != 7 || deleteMsg.Number != "INV-20240601-001" {
			t.Fatalf("unexpected delete message: %+v", deleteMsg)
		}
	})
}

func TestDecodeEnvelopeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("garbage")},
		{"unknown type", mustEnvelope(t, "reindex", map[string]any{"id": 1})},
		{"bad sync payload", mustEnvelope(t, MessageTypeSync, "not an object")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := DecodeEnvelope(tc.body); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func mustEnvelope(t *testing.T, msgType string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}
