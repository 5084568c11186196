package repo

import (
	"context"
	"errors"
	"io/fs"
)

// ErrNotFound is returned when no caller exists for a phone number.
var ErrNotFound = errors.New("caller not found")

// Repository defines the interface for caller persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Callers
	FindByPhone(ctx context.Context, phone string) (*Caller, error)
	// UpsertCall atomically creates the caller or appends the call to its
	// history. Profile values that are placeholders never replace stored
	// values. CreatedAt is only set on insert; UpdatedAt always.
	UpsertCall(ctx context.Context, update CallerUpdate) (*Caller, error)
}
