package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
)

// VisitRepository implements visit.Store using PostgreSQL.
type VisitRepository struct {
	conn *Connection
}

// NewVisitRepository creates a new VisitRepository.
func NewVisitRepository(conn *Connection) *VisitRepository {
	return &VisitRepository{conn: conn}
}

var _ visit.Store = (*VisitRepository)(nil)

const visitColumns = `id, user_id, landmark_id, country_id, continent, category,
	points_earned, visited_at, photos, diary_notes, travel_tips`

// Insert implements visit.Store.
func (r *VisitRepository) Insert(ctx context.Context, v *visit.Visit) (bool, error) {
	query := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, landmark_id) DO NOTHING
	`

	photos := v.Payload.Photos
	if photos == nil {
		photos = []string{}
	}

	created, err := insertIfAbsent(ctx, r.conn, query,
		v.ID,
		v.UserID.String(),
		v.LandmarkID.String(),
		v.CountryID.String(),
		v.Continent.String(),
		v.Category.String(),
		v.PointsEarned.Int(),
		v.VisitedAt,
		photos,
		v.Payload.DiaryNotes,
		v.Payload.TravelTips,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert visit: %w", err)
	}
	return created, nil
}

// Get implements visit.Store.
func (r *VisitRepository) Get(ctx context.Context, userID shared.UserID, landmarkID shared.LandmarkID) (*visit.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE user_id = $1 AND landmark_id = $2`

	v, err := scanVisit(r.conn.QueryRow(ctx, query, userID.String(), landmarkID.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return v, nil
}

// ListByUser implements visit.Store.
func (r *VisitRepository) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*visit.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE user_id = $1
		ORDER BY visited_at DESC, id
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var out []*visit.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Stats implements visit.Store with a single aggregate query.
func (r *VisitRepository) Stats(ctx context.Context, userID shared.UserID) (visit.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(points_earned), 0),
			COUNT(DISTINCT country_id),
			COUNT(DISTINCT continent),
			COUNT(*) FILTER (WHERE category = 'premium')
		FROM visits
		WHERE user_id = $1
	`

	var count, points, countries, continents, premium int64
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&count, &points, &countries, &continents, &premium)
	if err != nil {
		return visit.Stats{}, fmt.Errorf("failed to aggregate visit stats: %w", err)
	}

	return visit.Stats{
		VisitCount:         int(count),
		VisitPoints:        shared.Points(points),
		DistinctCountries:  int(countries),
		DistinctContinents: int(continents),
		PremiumVisits:      int(premium),
	}, nil
}

// VisitedLandmarkIDs implements visit.Store.
func (r *VisitRepository) VisitedLandmarkIDs(ctx context.Context, userID shared.UserID, country shared.CountryID) ([]shared.LandmarkID, error) {
	query := `SELECT landmark_id FROM visits WHERE user_id = $1 AND country_id = $2`

	rows, err := r.conn.Query(ctx, query, userID.String(), country.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query visited landmarks: %w", err)
	}
	defer rows.Close()

	var out []shared.LandmarkID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan landmark id: %w", err)
		}
		out = append(out, shared.LandmarkID(id))
	}
	return out, rows.Err()
}

// PointsByUser implements visit.Store.
func (r *VisitRepository) PointsByUser(ctx context.Context, tr shared.TimeRange) ([]shared.UserPoints, error) {
	query := `
		SELECT user_id, SUM(points_earned), MAX(visited_at)
		FROM visits
		WHERE ($1::timestamptz IS NULL OR visited_at >= $1)
		  AND ($2::timestamptz IS NULL OR visited_at < $2)
		GROUP BY user_id
	`
	return queryUserPoints(ctx, r.conn, query, tr)
}

func scanVisit(row pgx.Row) (*visit.Visit, error) {
	var (
		v                                                  visit.Visit
		userID, landmarkID, countryID, continent, category string
		points                                             int
		photos                                             []string
	)
	err := row.Scan(
		&v.ID,
		&userID,
		&landmarkID,
		&countryID,
		&continent,
		&category,
		&points,
		&v.VisitedAt,
		&photos,
		&v.Payload.DiaryNotes,
		&v.Payload.TravelTips,
	)
	if err != nil {
		return nil, err
	}

	v.UserID = shared.UserID(userID)
	v.LandmarkID = shared.LandmarkID(landmarkID)
	v.CountryID = shared.CountryID(countryID)
	v.Continent = shared.Continent(continent)
	v.Category = landmark.Category(category)
	v.PointsEarned = shared.Points(points)
	v.VisitedAt = v.VisitedAt.UTC()
	if len(photos) > 0 {
		v.Payload.Photos = photos
	}
	return &v, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// limitArg maps a non-positive limit to NULL, which Postgres reads as no limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// timeArg maps an unbounded side of a range to NULL.
func timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// queryUserPoints runs a (user_id, sum, max timestamp) aggregate bounded by tr.
func queryUserPoints(ctx context.Context, q Querier, query string, tr shared.TimeRange) ([]shared.UserPoints, error) {
	rows, err := q.Query(ctx, query, timeArg(tr.From), timeArg(tr.To))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate points: %w", err)
	}
	defer rows.Close()

	var out []shared.UserPoints
	for rows.Next() {
		var (
			userID    string
			points    int64
			reachedAt time.Time
		)
		if err := rows.Scan(&userID, &points, &reachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan points row: %w", err)
		}
		out = append(out, shared.UserPoints{
			UserID:    shared.UserID(userID),
			Points:    shared.Points(points),
			ReachedAt: reachedAt.UTC(),
		})
	}
	return out, rows.Err()
}
