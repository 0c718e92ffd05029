package backend

import (
	"context"

	"seikyu/internal/services"
)

// CleanupFunc releases the resources a backend holds open.
type CleanupFunc func() error

// Result contains the assembled invoice service and its cleanup.
type Result struct {
	Service *services.InvoiceService
	Cleanup CleanupFunc
}

// Factory assembles an invoice service from configuration: storage
// plus the optional export publisher.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Export queue; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
