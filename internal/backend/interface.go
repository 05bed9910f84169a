package backend

import (
	"context"

	"kharcha/internal/amqp"
	"kharcha/internal/sheets"
	"kharcha/internal/slot"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the durable slot is usable.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the durable slot, the optional change
// notification client and a cleanup function releasing both.
type BackendResult struct {
	Slot slot.Slot
	// AMQP is nil when notifications are disabled or the broker was
	// unreachable and not required.
	AMQP    *amqp.Client
	Ready   ReadyFunc
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the slot selected by config.Type and, when
	// configured, connects to the AMQP broker.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror returns the Google Sheets mirror, or an in-memory one
	// when no spreadsheet is configured.
	CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File specific
	DataDir string

	// SQLite specific
	SQLiteDBPath string

	// Change notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP turns a broker connection failure into an error instead
	// of a warning.
	RequireAMQP bool

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
