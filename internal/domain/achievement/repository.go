package achievement

import (
	"context"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Store persists achievements. (user_id, badge_type) is unique at the storage level.
type Store interface {
	// Insert stores a unless the user already holds the badge.
	// It reports whether a row was created.
	Insert(ctx context.Context, a *Achievement) (bool, error)

	// ListByUser returns a user's achievements ordered by earned_at.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*Achievement, error)
}
