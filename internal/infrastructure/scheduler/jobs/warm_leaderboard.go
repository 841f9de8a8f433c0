// Package jobs contains the scheduled jobs of the progression engine.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/travelquest/travelquest-hub/internal/domain/leaderboard"
	"github.com/travelquest/travelquest-hub/pkg/logger"
)

// RankingRefresher recomputes a window and writes it to the ranking cache.
type RankingRefresher interface {
	Refresh(ctx context.Context, window leaderboard.Window) (int, error)
}

// WarmLeaderboardConfig contains configuration for the warm-up job.
type WarmLeaderboardConfig struct {
	// Windows to refresh. Empty means every window.
	Windows []leaderboard.Window

	// Timeout bounds a single run.
	Timeout time.Duration
}

// DefaultWarmLeaderboardConfig returns sensible defaults.
func DefaultWarmLeaderboardConfig() WarmLeaderboardConfig {
	return WarmLeaderboardConfig{
		Windows: leaderboard.AllWindows(),
		Timeout: 30 * time.Second,
	}
}

// WarmLeaderboardJob keeps cached rankings populated so reads after an
// invalidation or a week/month rollover rarely pay for a recomputation.
type WarmLeaderboardJob struct {
	refresher RankingRefresher
	config    WarmLeaderboardConfig
	logger    *slog.Logger
}

// NewWarmLeaderboardJob creates the job.
func NewWarmLeaderboardJob(refresher RankingRefresher, config WarmLeaderboardConfig, log *slog.Logger) *WarmLeaderboardJob {
	if len(config.Windows) == 0 {
		config.Windows = leaderboard.AllWindows()
	}
	return &WarmLeaderboardJob{
		refresher: refresher,
		config:    config,
		logger:    logger.OrDefault(log).With(logger.Component("warm_leaderboard")),
	}
}

// Name implements scheduler.Job.
func (j *WarmLeaderboardJob) Name() string {
	return "warm_leaderboard"
}

// Description implements scheduler.Job.
func (j *WarmLeaderboardJob) Description() string {
	return "Recompute and cache the leaderboard of every window"
}

// Run refreshes each window. One failing window does not stop the others.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	var errs []error
	for _, w := range j.config.Windows {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		users, err := j.refresher.Refresh(ctx, w)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w, err))
			continue
		}
		j.logger.Debug("leaderboard warmed", logger.Window(w.String()), slog.Int("users", users))
	}
	return errors.Join(errs...)
}
