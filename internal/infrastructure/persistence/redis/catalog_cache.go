package redis

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/pkg/logger"
)

// cachedLandmark is the stored form of a catalog landmark.
type cachedLandmark struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CountryID  string `json:"country_id"`
	Continent  string `json:"continent"`
	Category   string `json:"category"`
	PointValue int    `json:"point_value"`
}

// CatalogCache is a read-through landmark.Catalog. Lookups are served from
// Redis when present and filled from the wrapped catalog otherwise. Redis
// errors are logged and the wrapped catalog answers instead.
type CatalogCache struct {
	next   landmark.Catalog
	cache  *Cache
	ttl    time.Duration
	logger *slog.Logger
}

var _ landmark.Catalog = (*CatalogCache)(nil)

// NewCatalogCache wraps next. A non-positive ttl uses TTLCatalogCache.
func NewCatalogCache(next landmark.Catalog, cache *Cache, ttl time.Duration, log *slog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = TTLCatalogCache
	}
	return &CatalogCache{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.OrDefault(log).With(logger.Component("catalog_cache")),
	}
}

// LandmarkKey generates the cache key for one landmark.
func LandmarkKey(id shared.LandmarkID) string {
	return PrefixLandmark + id.String()
}

// CountryKey generates the cache key for a country's landmark ids under a
// category filter. The filter is sorted so equal sets share a key.
func CountryKey(country shared.CountryID, categories []landmark.Category) string {
	if len(categories) == 0 {
		return PrefixCountry + country.String() + ":all"
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.String())
	}
	sort.Strings(names)
	return PrefixCountry + country.String() + ":" + strings.Join(names, ",")
}

// ContinentKey generates the cache key for a continent's country ids.
func ContinentKey(continent shared.Continent) string {
	return PrefixContinent + continent.String()
}

// Get implements landmark.Catalog.
func (c *CatalogCache) Get(ctx context.Context, id shared.LandmarkID) (*landmark.Landmark, error) {
	key := LandmarkKey(id)

	var stored cachedLandmark
	if c.lookup(ctx, key, &stored) {
		return &landmark.Landmark{
			ID:         shared.LandmarkID(stored.ID),
			Name:       stored.Name,
			CountryID:  shared.CountryID(stored.CountryID),
			Continent:  shared.Continent(stored.Continent),
			Category:   landmark.Category(stored.Category),
			PointValue: shared.Points(stored.PointValue),
		}, nil
	}

	l, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, cachedLandmark{
		ID:         l.ID.String(),
		Name:       l.Name,
		CountryID:  l.CountryID.String(),
		Continent:  l.Continent.String(),
		Category:   l.Category.String(),
		PointValue: l.PointValue.Int(),
	})
	return l, nil
}

// LandmarkIDsIn implements landmark.Catalog.
func (c *CatalogCache) LandmarkIDsIn(ctx context.Context, country shared.CountryID, categories ...landmark.Category) ([]shared.LandmarkID, error) {
	key := CountryKey(country, categories)

	var stored []string
	if c.lookup(ctx, key, &stored) {
		ids := make([]shared.LandmarkID, 0, len(stored))
		for _, s := range stored {
			ids = append(ids, shared.LandmarkID(s))
		}
		return ids, nil
	}

	ids, err := c.next.LandmarkIDsIn(ctx, country, categories...)
	if err != nil {
		return nil, err
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	c.store(ctx, key, raw)
	return ids, nil
}

// CountriesIn implements landmark.Catalog.
func (c *CatalogCache) CountriesIn(ctx context.Context, continent shared.Continent) ([]shared.CountryID, error) {
	key := ContinentKey(continent)

	var stored []string
	if c.lookup(ctx, key, &stored) {
		out := make([]shared.CountryID, 0, len(stored))
		for _, s := range stored {
			out = append(out, shared.CountryID(s))
		}
		return out, nil
	}

	countries, err := c.next.CountriesIn(ctx, continent)
	if err != nil {
		return nil, err
	}

	raw := make([]string, 0, len(countries))
	for _, id := range countries {
		raw = append(raw, id.String())
	}
	c.store(ctx, key, raw)
	return countries, nil
}

// Flush drops every cached catalog key. Call it after the catalog is reseeded.
func (c *CatalogCache) Flush(ctx context.Context) error {
	for _, prefix := range []string{PrefixLandmark, PrefixCountry, PrefixContinent} {
		if err := c.cache.DeleteByPattern(ctx, prefix+"*"); err != nil {
			return err
		}
	}
	return nil
}

func (c *CatalogCache) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := c.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("catalog cache read failed", slog.String("key", key), logger.Err(err))
	}
	return false
}

func (c *CatalogCache) store(ctx context.Context, key string, value interface{}) {
	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", slog.String("key", key), logger.Err(err))
	}
}
