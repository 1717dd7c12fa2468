// Package storage defines the persisted layout of the ledger and the ports
// its key-value backends implement.
package storage

import "context"

// Keys of the two independently stored entries.
const (
	KeyBudget   = "budget"
	KeyExpenses = "expenses"
)

// Ports for outbound adapters.
type (
	// KeyValueStore is a flat string store, the server-side analogue of
	// browser local storage.
	KeyValueStore interface {
		// Get returns ok=false when the key has never been written.
		Get(ctx context.Context, key string) (value string, ok bool, err error)
		Set(ctx context.Context, key, value string) error
	}

	// Pinger is implemented by stores that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
