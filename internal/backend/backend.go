// Package backend selects and wires the persistence layer behind the plan
// service: an in-memory repository for development and tests, or SQLite
// with optional AMQP change publishing for real deployments.
package backend

import (
	"busta/internal/config"
	"busta/internal/services"
	"busta/internal/storage"
)

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result contains the assembled backend pieces. Publisher is nil when AMQP
// is not configured or unreachable; the plan service treats that as
// "snapshot queue only".
type Result struct {
	Repo      storage.Repository
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Type represents the kind of persistence backing the repository.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to build a backend.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// ConfigFromApp converts the application config into a backend config.
func ConfigFromApp(appCfg *config.Config) Config {
	return Config{
		Type:         Type(appCfg.DataBackend),
		SQLiteDBPath: appCfg.SQLiteDBPath,
		AMQPURL:      appCfg.AMQPURL,
		AMQPExchange: appCfg.AMQPExchange,
		AMQPQueue:    appCfg.AMQPQueue,
	}
}
