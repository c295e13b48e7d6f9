package repository

import (
	"context"

	"github.com/devmojahid/restu-food/internal/domain"
)

// CartRepository defines the interface for the durable cart slot.
type CartRepository interface {
	// Load retrieves the snapshot stored for a session. Returns a
	// not-found error when the slot is empty.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Save overwrites the snapshot stored for a session.
	Save(ctx context.Context, sessionID string, snapshot *domain.Snapshot) error

	// Delete empties the slot for a session.
	Delete(ctx context.Context, sessionID string) error
}
