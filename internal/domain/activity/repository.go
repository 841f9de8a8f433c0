package activity

import (
	"context"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// FeedStore is the append-only storage for feed entries.
// The domain layer has no knowledge of the actual storage mechanism.
type FeedStore interface {
	// Append stores an entry. Entries are never updated or deleted.
	Append(ctx context.Context, e *Entry) error

	// ListByUser returns a user's entries, newest first. limit <= 0 means all.
	ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*Entry, error)
}
