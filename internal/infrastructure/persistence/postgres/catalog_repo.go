package postgres

import (
	"context"
	"fmt"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// CatalogRepository implements landmark.Catalog over the read-only
// countries and landmarks tables.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

var _ landmark.Catalog = (*CatalogRepository)(nil)

// Get implements landmark.Catalog.
func (r *CatalogRepository) Get(ctx context.Context, id shared.LandmarkID) (*landmark.Landmark, error) {
	query := `
		SELECT name, country_id, continent, category, point_value
		FROM landmarks
		WHERE id = $1
	`

	var (
		name, country, continent, category string
		points                             int
	)
	err := r.conn.QueryRow(ctx, query, id.String()).Scan(&name, &country, &continent, &category, &points)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLandmarkNotFound
		}
		return nil, fmt.Errorf("failed to get landmark: %w", err)
	}

	l := &landmark.Landmark{
		ID:         id,
		Name:       name,
		CountryID:  shared.CountryID(country),
		Continent:  shared.Continent(continent),
		Category:   landmark.Category(category),
		PointValue: shared.Points(points),
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog row %q: %w", id, err)
	}
	return l, nil
}

// LandmarkIDsIn implements landmark.Catalog.
func (r *CatalogRepository) LandmarkIDsIn(ctx context.Context, country shared.CountryID, categories ...landmark.Category) ([]shared.LandmarkID, error) {
	query := `
		SELECT id FROM landmarks
		WHERE country_id = $1
		  AND ($2::text[] IS NULL OR category = ANY($2))
		ORDER BY id
	`

	var cats any
	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.String())
		}
		cats = names
	}

	rows, err := r.conn.Query(ctx, query, country.String(), cats)
	if err != nil {
		return nil, fmt.Errorf("failed to query country landmarks: %w", err)
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

// CountriesIn implements landmark.Catalog.
func (r *CatalogRepository) CountriesIn(ctx context.Context, continent shared.Continent) ([]shared.CountryID, error) {
	query := `SELECT id FROM countries WHERE continent = $1 ORDER BY id`

	rows, err := r.conn.Query(ctx, query, continent.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query continent countries: %w", err)
	}
	defer rows.Close()

	var out []shared.CountryID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan country id: %w", err)
		}
		out = append(out, shared.CountryID(id))
	}
	return out, rows.Err()
}
