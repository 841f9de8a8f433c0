package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Catalog is an in-memory landmark.Catalog.
type Catalog struct {
	mu        sync.RWMutex
	landmarks map[shared.LandmarkID]*landmark.Landmark
}

// NewCatalog creates a catalog holding the given landmarks.
func NewCatalog(landmarks ...*landmark.Landmark) *Catalog {
	c := &Catalog{landmarks: make(map[shared.LandmarkID]*landmark.Landmark, len(landmarks))}
	for _, l := range landmarks {
		c.Put(l)
	}
	return c
}

var _ landmark.Catalog = (*Catalog)(nil)

// Put adds or replaces a landmark.
func (c *Catalog) Put(l *landmark.Landmark) {
	cp := *l
	c.mu.Lock()
	c.landmarks[l.ID] = &cp
	c.mu.Unlock()
}

// Get implements landmark.Catalog.
func (c *Catalog) Get(ctx context.Context, id shared.LandmarkID) (*landmark.Landmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.landmarks[id]
	if !ok {
		return nil, shared.ErrLandmarkNotFound
	}
	cp := *l
	return &cp, nil
}

// LandmarkIDsIn implements landmark.Catalog.
func (c *Catalog) LandmarkIDsIn(ctx context.Context, country shared.CountryID, categories ...landmark.Category) ([]shared.LandmarkID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []shared.LandmarkID
	for _, l := range c.landmarks {
		if l.CountryID == country && landmark.MatchesCategory(l.Category, categories) {
			out = append(out, l.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// CountriesIn implements landmark.Catalog.
func (c *Catalog) CountriesIn(ctx context.Context, continent shared.Continent) ([]shared.CountryID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[shared.CountryID]struct{})
	for _, l := range c.landmarks {
		if l.Continent == continent {
			seen[l.CountryID] = struct{}{}
		}
	}
	out := make([]shared.CountryID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
