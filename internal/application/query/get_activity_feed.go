package query

import (
	"context"
	"fmt"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/activity"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Feed page sizes.
const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 200
)

// ActivityDTO is one feed entry ready for serialization.
type ActivityDTO struct {
	ID        string           `json:"activity_id"`
	Type      string           `json:"activity_type"`
	Payload   activity.Payload `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}

// GetActivityFeedHandler lists a user's feed entries, newest first.
type GetActivityFeedHandler struct {
	feed activity.FeedStore
}

// NewGetActivityFeedHandler creates a new GetActivityFeedHandler.
func NewGetActivityFeedHandler(feed activity.FeedStore) *GetActivityFeedHandler {
	return &GetActivityFeedHandler{feed: feed}
}

// Handle returns up to limit entries. A non-positive limit selects the
// default and larger values are capped.
func (h *GetActivityFeedHandler) Handle(ctx context.Context, userID shared.UserID, limit int) ([]ActivityDTO, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	entries, err := h.feed.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("activity_feed: list: %w", err)
	}

	out := make([]ActivityDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActivityDTO{
			ID:        e.ID,
			Type:      e.Type.String(),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}
