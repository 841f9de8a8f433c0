package postgres

import (
	"context"
	"fmt"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// AchievementRepository implements achievement.Store using PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

var _ achievement.Store = (*AchievementRepository)(nil)

// Insert implements achievement.Store.
func (r *AchievementRepository) Insert(ctx context.Context, a *achievement.Achievement) (bool, error) {
	query := `
		INSERT INTO achievements (id, user_id, badge_type, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_type) DO NOTHING
	`

	created, err := insertIfAbsent(ctx, r.conn, query, a.ID, a.UserID.String(), a.BadgeType.String(), a.EarnedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	return created, nil
}

// ListByUser implements achievement.Store.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*achievement.Achievement, error) {
	query := `
		SELECT id, badge_type, earned_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY earned_at, badge_type
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []*achievement.Achievement
	for rows.Next() {
		a := &achievement.Achievement{UserID: userID}
		var badge string
		if err := rows.Scan(&a.ID, &badge, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.BadgeType = achievement.BadgeType(badge)
		a.EarnedAt = a.EarnedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
