// Package memory provides mutex-guarded in-process implementations of the
// progression storage interfaces. Each insert-if-absent checks and writes
// under a single lock, which gives the same guarantee a unique index gives
// the Postgres adapter. Intended for tests and single-node development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/activity"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
)

// Stores bundles every store backed by memory.
type Stores struct {
	Visits       *VisitStore
	Achievements *AchievementStore
	Completions  *CompletionStore
	Feed         *FeedStore
}

// New creates empty stores.
func New() *Stores {
	return &Stores{
		Visits:       NewVisitStore(),
		Achievements: NewAchievementStore(),
		Completions:  NewCompletionStore(),
		Feed:         NewFeedStore(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// VISITS
// ══════════════════════════════════════════════════════════════════════════════

type visitKey struct {
	user     shared.UserID
	landmark shared.LandmarkID
}

// VisitStore implements visit.Store.
type VisitStore struct {
	mu     sync.RWMutex
	byKey  map[visitKey]*visit.Visit
	byUser map[shared.UserID][]*visit.Visit
}

// NewVisitStore creates an empty store.
func NewVisitStore() *VisitStore {
	return &VisitStore{
		byKey:  make(map[visitKey]*visit.Visit),
		byUser: make(map[shared.UserID][]*visit.Visit),
	}
}

var _ visit.Store = (*VisitStore)(nil)

// Insert implements visit.Store.
func (s *VisitStore) Insert(ctx context.Context, v *visit.Visit) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := visitKey{user: v.UserID, landmark: v.LandmarkID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[k]; exists {
		return false, nil
	}
	cp := *v
	s.byKey[k] = &cp
	s.byUser[v.UserID] = append(s.byUser[v.UserID], &cp)
	return true, nil
}

// Get implements visit.Store.
func (s *VisitStore) Get(ctx context.Context, userID shared.UserID, landmarkID shared.LandmarkID) (*visit.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byKey[visitKey{user: userID, landmark: landmarkID}]
	if !ok {
		return nil, shared.ErrVisitNotFound
	}
	cp := *v
	return &cp, nil
}

// ListByUser implements visit.Store.
func (s *VisitStore) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*visit.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	src := s.byUser[userID]
	out := make([]*visit.Visit, 0, len(src))
	for _, v := range src {
		cp := *v
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VisitedAt.After(out[j].VisitedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats implements visit.Store.
func (s *VisitStore) Stats(ctx context.Context, userID shared.UserID) (visit.Stats, error) {
	if err := ctx.Err(); err != nil {
		return visit.Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return visit.ComputeStats(s.byUser[userID]), nil
}

// VisitedLandmarkIDs implements visit.Store.
func (s *VisitStore) VisitedLandmarkIDs(ctx context.Context, userID shared.UserID, country shared.CountryID) ([]shared.LandmarkID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.LandmarkID
	for _, v := range s.byUser[userID] {
		if v.CountryID == country {
			out = append(out, v.LandmarkID)
		}
	}
	return out, nil
}

// PointsByUser implements visit.Store.
func (s *VisitStore) PointsByUser(ctx context.Context, r shared.TimeRange) ([]shared.UserPoints, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shared.UserPoints, 0, len(s.byUser))
	for userID, visits := range s.byUser {
		up := shared.UserPoints{UserID: userID}
		for _, v := range visits {
			if !r.Contains(v.VisitedAt) {
				continue
			}
			up.Points += v.PointsEarned
			if v.VisitedAt.After(up.ReachedAt) {
				up.ReachedAt = v.VisitedAt
			}
		}
		if !up.ReachedAt.IsZero() {
			out = append(out, up)
		}
	}
	return out, nil
}

// Count returns the total number of stored visits.
func (s *VisitStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

type achievementKey struct {
	user  shared.UserID
	badge achievement.BadgeType
}

// AchievementStore implements achievement.Store.
type AchievementStore struct {
	mu     sync.RWMutex
	byKey  map[achievementKey]*achievement.Achievement
	byUser map[shared.UserID][]*achievement.Achievement
}

// NewAchievementStore creates an empty store.
func NewAchievementStore() *AchievementStore {
	return &AchievementStore{
		byKey:  make(map[achievementKey]*achievement.Achievement),
		byUser: make(map[shared.UserID][]*achievement.Achievement),
	}
}

var _ achievement.Store = (*AchievementStore)(nil)

// Insert implements achievement.Store.
func (s *AchievementStore) Insert(ctx context.Context, a *achievement.Achievement) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := achievementKey{user: a.UserID, badge: a.BadgeType}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[k]; exists {
		return false, nil
	}
	cp := *a
	s.byKey[k] = &cp
	s.byUser[a.UserID] = append(s.byUser[a.UserID], &cp)
	return true, nil
}

// ListByUser implements achievement.Store.
func (s *AchievementStore) ListByUser(ctx context.Context, userID shared.UserID) ([]*achievement.Achievement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*achievement.Achievement, 0, len(s.byUser[userID]))
	for _, a := range s.byUser[userID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EarnedAt.Before(out[j].EarnedAt)
	})
	return out, nil
}

// Count returns the total number of stored achievements.
func (s *AchievementStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION BONUSES
// ══════════════════════════════════════════════════════════════════════════════

type bonusKey struct {
	user    shared.UserID
	scope   completion.Scope
	scopeID string
}

// CompletionStore implements completion.Store.
type CompletionStore struct {
	mu     sync.RWMutex
	byKey  map[bonusKey]*completion.Bonus
	byUser map[shared.UserID][]*completion.Bonus
}

// NewCompletionStore creates an empty store.
func NewCompletionStore() *CompletionStore {
	return &CompletionStore{
		byKey:  make(map[bonusKey]*completion.Bonus),
		byUser: make(map[shared.UserID][]*completion.Bonus),
	}
}

var _ completion.Store = (*CompletionStore)(nil)

// Insert implements completion.Store.
func (s *CompletionStore) Insert(ctx context.Context, b *completion.Bonus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := bonusKey{user: b.UserID, scope: b.Scope, scopeID: b.ScopeID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[k]; exists {
		return false, nil
	}
	cp := *b
	s.byKey[k] = &cp
	s.byUser[b.UserID] = append(s.byUser[b.UserID], &cp)
	return true, nil
}

// ListByUser implements completion.Store.
func (s *CompletionStore) ListByUser(ctx context.Context, userID shared.UserID) ([]*completion.Bonus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*completion.Bonus, 0, len(s.byUser[userID]))
	for _, b := range s.byUser[userID] {
		cp := *b
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AwardedAt.Before(out[j].AwardedAt)
	})
	return out, nil
}

// ScopeIDs implements completion.Store.
func (s *CompletionStore) ScopeIDs(ctx context.Context, userID shared.UserID, scope completion.Scope) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, b := range s.byUser[userID] {
		if b.Scope == scope {
			out = append(out, b.ScopeID)
		}
	}
	return out, nil
}

// PointsByUser implements completion.Store.
func (s *CompletionStore) PointsByUser(ctx context.Context, r shared.TimeRange) ([]shared.UserPoints, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shared.UserPoints, 0, len(s.byUser))
	for userID, bonuses := range s.byUser {
		up := shared.UserPoints{UserID: userID}
		for _, b := range bonuses {
			if !r.Contains(b.AwardedAt) {
				continue
			}
			up.Points += b.BonusPoints
			if b.AwardedAt.After(up.ReachedAt) {
				up.ReachedAt = b.AwardedAt
			}
		}
		if !up.ReachedAt.IsZero() {
			out = append(out, up)
		}
	}
	return out, nil
}

// Count returns the total number of stored bonuses.
func (s *CompletionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY FEED
// ══════════════════════════════════════════════════════════════════════════════

// FeedStore implements activity.FeedStore.
type FeedStore struct {
	mu     sync.RWMutex
	byUser map[shared.UserID][]*activity.Entry
	total  int
}

// NewFeedStore creates an empty store.
func NewFeedStore() *FeedStore {
	return &FeedStore{byUser: make(map[shared.UserID][]*activity.Entry)}
}

var _ activity.FeedStore = (*FeedStore)(nil)

// Append implements activity.FeedStore.
func (s *FeedStore) Append(ctx context.Context, e *activity.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *e
	s.mu.Lock()
	s.byUser[e.UserID] = append(s.byUser[e.UserID], &cp)
	s.total++
	s.mu.Unlock()
	return nil
}

// ListByUser implements activity.FeedStore.
func (s *FeedStore) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*activity.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	src := s.byUser[userID]
	out := make([]*activity.Entry, 0, len(src))
	// Append order is creation order; walk backwards for newest first.
	for i := len(src) - 1; i >= 0; i-- {
		cp := *src[i]
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the total number of stored entries.
func (s *FeedStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
