package postgres

import (
	"context"
	"fmt"

	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// CompletionRepository implements completion.Store using PostgreSQL.
type CompletionRepository struct {
	conn *Connection
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{conn: conn}
}

var _ completion.Store = (*CompletionRepository)(nil)

// Insert implements completion.Store.
func (r *CompletionRepository) Insert(ctx context.Context, b *completion.Bonus) (bool, error) {
	query := `
		INSERT INTO completion_bonuses (id, user_id, scope, scope_id, bonus_points, awarded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, scope, scope_id) DO NOTHING
	`

	created, err := insertIfAbsent(ctx, r.conn, query,
		b.ID, b.UserID.String(), b.Scope.String(), b.ScopeID, b.BonusPoints.Int(), b.AwardedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert completion bonus: %w", err)
	}
	return created, nil
}

// ListByUser implements completion.Store.
func (r *CompletionRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*completion.Bonus, error) {
	query := `
		SELECT id, scope, scope_id, bonus_points, awarded_at
		FROM completion_bonuses
		WHERE user_id = $1
		ORDER BY awarded_at, scope, scope_id
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list completion bonuses: %w", err)
	}
	defer rows.Close()

	var out []*completion.Bonus
	for rows.Next() {
		b := &completion.Bonus{UserID: userID}
		var (
			scope  string
			points int
		)
		if err := rows.Scan(&b.ID, &scope, &b.ScopeID, &points, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion bonus: %w", err)
		}
		b.Scope = completion.Scope(scope)
		b.BonusPoints = shared.Points(points)
		b.AwardedAt = b.AwardedAt.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// ScopeIDs implements completion.Store.
func (r *CompletionRepository) ScopeIDs(ctx context.Context, userID shared.UserID, scope completion.Scope) ([]string, error) {
	query := `SELECT scope_id FROM completion_bonuses WHERE user_id = $1 AND scope = $2`

	rows, err := r.conn.Query(ctx, query, userID.String(), scope.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query completion scopes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan scope id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PointsByUser implements completion.Store.
func (r *CompletionRepository) PointsByUser(ctx context.Context, tr shared.TimeRange) ([]shared.UserPoints, error) {
	query := `
		SELECT user_id, SUM(bonus_points), MAX(awarded_at)
		FROM completion_bonuses
		WHERE ($1::timestamptz IS NULL OR awarded_at >= $1)
		  AND ($2::timestamptz IS NULL OR awarded_at < $2)
		GROUP BY user_id
	`
	return queryUserPoints(ctx, r.conn, query, tr)
}
