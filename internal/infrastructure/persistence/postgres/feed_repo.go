package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/travelquest/travelquest-hub/internal/domain/activity"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// FeedRepository implements activity.FeedStore using PostgreSQL.
// The type-specific payload is stored as JSONB.
type FeedRepository struct {
	conn *Connection
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(conn *Connection) *FeedRepository {
	return &FeedRepository{conn: conn}
}

var _ activity.FeedStore = (*FeedRepository)(nil)

// Append implements activity.FeedStore.
func (r *FeedRepository) Append(ctx context.Context, e *activity.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal feed payload: %w", err)
	}

	query := `
		INSERT INTO activity_feed (id, user_id, activity_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.conn.Exec(ctx, query, e.ID, e.UserID.String(), e.Type.String(), payload, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to append feed entry: %w", err)
	}
	return nil
}

// ListByUser implements activity.FeedStore.
func (r *FeedRepository) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*activity.Entry, error) {
	query := `
		SELECT id, activity_type, payload, created_at
		FROM activity_feed
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list feed entries: %w", err)
	}
	defer rows.Close()

	var out []*activity.Entry
	for rows.Next() {
		e := &activity.Entry{UserID: userID}
		var (
			typ     string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &typ, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feed payload: %w", err)
		}
		e.Type = activity.Type(typ)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
