package visit

import (
	"context"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Store is the durable storage for visits. The (user_id, landmark_id) pair is
// unique at the storage level.
type Store interface {
	// Insert stores v unless a visit for (v.UserID, v.LandmarkID) already exists.
	// It reports whether a row was created. A lost race is (false, nil).
	Insert(ctx context.Context, v *Visit) (bool, error)

	// Get returns the visit of a user to a landmark, or shared.ErrVisitNotFound.
	Get(ctx context.Context, userID shared.UserID, landmarkID shared.LandmarkID) (*Visit, error)

	// ListByUser returns a user's visits, newest first. limit <= 0 means all.
	ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*Visit, error)

	// Stats aggregates a user's cumulative figures.
	Stats(ctx context.Context, userID shared.UserID) (Stats, error)

	// VisitedLandmarkIDs returns the landmarks a user has visited in a country.
	VisitedLandmarkIDs(ctx context.Context, userID shared.UserID, country shared.CountryID) ([]shared.LandmarkID, error)

	// PointsByUser sums points_earned per user for visits inside r.
	PointsByUser(ctx context.Context, r shared.TimeRange) ([]shared.UserPoints, error)
}
