// Package leaderboard contains the ranking model: points per user aggregated
// over a time window and recomputed on demand from visits and completion bonuses.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/shared"
)

// Domain errors for leaderboard package.
var (
	ErrInvalidWindow = errors.New("leaderboard: invalid window")
	ErrInvalidLimit  = errors.New("leaderboard: limit cannot be negative")
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Window selects which records count towards a total.
type Window string

const (
	WindowAllTime Window = "all_time"
	WindowMonthly Window = "monthly"
	WindowWeekly  Window = "weekly"
)

// AllWindows lists every supported window.
func AllWindows() []Window {
	return []Window{WindowAllTime, WindowMonthly, WindowWeekly}
}

// ParseWindow parses a window name. An empty string means all_time.
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToLower(strings.TrimSpace(s)))
	if w == "" {
		return WindowAllTime, nil
	}
	if !w.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return w, nil
}

// IsValid checks if the window is supported.
func (w Window) IsValid() bool {
	return w == WindowAllTime || w == WindowMonthly || w == WindowWeekly
}

// String returns the string representation.
func (w Window) String() string {
	return string(w)
}

// Rank is a 1-based position.
type Rank int

// IsValid checks that the rank is positive.
func (r Rank) IsValid() bool {
	return r > 0
}

// String returns "#N".
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one ranked user.
type Entry struct {
	Rank        Rank
	UserID      shared.UserID
	TotalPoints shared.Points
	VisitPoints shared.Points
	BonusPoints shared.Points

	// ReachedAt is when the user reached TotalPoints: the timestamp of the
	// latest record counted in the window.
	ReachedAt time.Time
}

// String returns a short debug representation.
func (e Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, User: %s, Points: %d}", e.Rank, e.UserID, e.TotalPoints)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Ranking is an ordered list of entries for one window.
type Ranking struct {
	Window Window
	// From is the start of the period the ranking covers. Zero for all_time.
	From    time.Time
	Entries []Entry

	// Generation is the cache generation read before the ranking was computed.
	Generation uint64
}

// Covers reports whether the ranking was computed for the period starting at from.
func (r *Ranking) Covers(window Window, from time.Time) bool {
	return r.Window == window && r.From.Equal(from)
}

// Build merges per-user visit and bonus sums, drops users without points and
// orders the result: total points desc, then ReachedAt asc, then user id asc.
// The same input always produces the same order.
func Build(window Window, visitPoints, bonusPoints []shared.UserPoints) *Ranking {
	byUser := make(map[shared.UserID]*Entry, len(visitPoints))
	get := func(id shared.UserID) *Entry {
		e, ok := byUser[id]
		if !ok {
			e = &Entry{UserID: id}
			byUser[id] = e
		}
		return e
	}

	for _, p := range visitPoints {
		e := get(p.UserID)
		e.VisitPoints += p.Points
		if p.ReachedAt.After(e.ReachedAt) {
			e.ReachedAt = p.ReachedAt
		}
	}
	for _, p := range bonusPoints {
		e := get(p.UserID)
		e.BonusPoints += p.Points
		if p.ReachedAt.After(e.ReachedAt) {
			e.ReachedAt = p.ReachedAt
		}
	}

	entries := make([]Entry, 0, len(byUser))
	for _, e := range byUser {
		e.TotalPoints = e.VisitPoints + e.BonusPoints
		if e.TotalPoints <= 0 {
			continue
		}
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if !a.ReachedAt.Equal(b.ReachedAt) {
			return a.ReachedAt.Before(b.ReachedAt)
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = Rank(i + 1)
	}

	return &Ranking{Window: window, Entries: entries}
}

// Len returns the number of ranked users.
func (r *Ranking) Len() int {
	return len(r.Entries)
}

// Top returns the first n entries. n <= 0 returns every entry.
func (r *Ranking) Top(n int) []Entry {
	if n <= 0 || n > len(r.Entries) {
		n = len(r.Entries)
	}
	out := make([]Entry, n)
	copy(out, r.Entries[:n])
	return out
}

// Find returns the entry of a user.
func (r *Ranking) Find(userID shared.UserID) (Entry, bool) {
	for _, e := range r.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}
