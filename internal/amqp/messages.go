package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MessageTypeSync   = "sync"
	MessageTypeDelete = "delete"
)

// Envelope wraps every queue message with its type so one queue can
// carry both sync and delete events.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InvoiceSyncMessage asks the worker to (re-)export one invoice to the
// bookkeeping ledger. It carries only the ID and version; the worker
// fetches the full invoice from the database.
type InvoiceSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// InvoiceDeleteMessage asks the worker to remove an invoice's row from
// the ledger. The number travels in the message because the database
// row is already gone.
type InvoiceDeleteMessage struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceSyncMessage(id, version int64) *InvoiceSyncMessage {
	return &InvoiceSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewInvoiceDeleteMessage(id int64, number string) *InvoiceDeleteMessage {
	return &InvoiceDeleteMessage{
		ID:        id,
		Number:    number,
		Timestamp: time.Now(),
	}
}

func envelope(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: body})
}

// DecodeEnvelope parses an incoming queue message into its typed form.
func DecodeEnvelope(data []byte) (*InvoiceSyncMessage, *InvoiceDeleteMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case MessageTypeSync:
		var msg InvoiceSyncMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, nil, fmt.Errorf("unmarshal sync payload: %w", err)
		}
		return &msg, nil, nil
	case MessageTypeDelete:
		var msg InvoiceDeleteMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, nil, fmt.Errorf("unmarshal delete payload: %w", err)
		}
		return nil, &msg, nil
	default:
		return nil, nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
