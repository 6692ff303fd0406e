package store

import (
	"context"

	"github.com/jpalmerr/tokenwatch/internal/account"
)

// Store defines how the account table is loaded and saved.
//
// Implementations must return a table the caller may mutate freely, and
// must replace the stored table as a whole on Save.
type Store interface {
	// Load returns the stored table. A store that has never been written
	// returns an empty, non-nil table and no error.
	Load(ctx context.Context) (account.Table, error)

	// Save overwrites the stored table.
	Save(ctx context.Context, table account.Table) error
}
