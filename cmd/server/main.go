// Package main is the entry point of the TravelQuest progression engine.
//
// The process wires the engine to its storage (Postgres, or memory when no
// database is configured), the optional Redis caches and the in-process event
// bus, then serves the operational endpoints until it receives a signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/travelquest/travelquest-hub/config"
	"github.com/travelquest/travelquest-hub/internal/application/command"
	"github.com/travelquest/travelquest-hub/internal/application/eventhandler"
	"github.com/travelquest/travelquest-hub/internal/application/query"
	"github.com/travelquest/travelquest-hub/internal/application/saga"
	"github.com/travelquest/travelquest-hub/internal/domain/achievement"
	"github.com/travelquest/travelquest-hub/internal/domain/activity"
	"github.com/travelquest/travelquest-hub/internal/domain/completion"
	"github.com/travelquest/travelquest-hub/internal/domain/landmark"
	"github.com/travelquest/travelquest-hub/internal/domain/leaderboard"
	"github.com/travelquest/travelquest-hub/internal/domain/shared"
	"github.com/travelquest/travelquest-hub/internal/domain/tier"
	"github.com/travelquest/travelquest-hub/internal/domain/visit"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/messaging"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/persistence/memory"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/persistence/postgres"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/persistence/redis"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/scheduler"
	"github.com/travelquest/travelquest-hub/internal/infrastructure/scheduler/jobs"
	ophttp "github.com/travelquest/travelquest-hub/internal/interface/http"
	"github.com/travelquest/travelquest-hub/pkg/circuitbreaker"
	"github.com/travelquest/travelquest-hub/pkg/logger"
	"github.com/travelquest/travelquest-hub/pkg/retry"
	"github.com/travelquest/travelquest-hub/pkg/timeutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// storage is the set of stores the engine runs on.
type storage struct {
	catalog      landmark.Catalog
	visits       visit.Store
	achievements achievement.Store
	bonuses      completion.Store
	feed         activity.FeedStore
	stats        func() any
	close        func()
}

// engine holds the public entry points of the progression engine.
type engine struct {
	Submit      *saga.SubmitVisitSaga
	Badges      *command.BadgeEngine
	Completions *command.CompletionBonusEngine
	Leaderboard *query.GetLeaderboardHandler
	Progress    *query.GetUserProgressHandler
	Feed        *query.GetActivityFeedHandler
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat).With(
		slog.String("service", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)
	slog.SetDefault(log)

	log.Info("starting progression engine",
		slog.String("env", string(cfg.App.Environment)),
		slog.String("leaderboard_tz", cfg.Progression.LeaderboardTimezone),
	)
	for _, name := range cfg.Features.ResolveDependencies() {
		log.Warn("feature disabled, a feature it requires is off", slog.String("feature", name))
	}
	log.Debug("feature flags", slog.Any("features", cfg.Features.GetAllFeatures()))

	health := ophttp.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStorage(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer store.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var rankingCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(ctx, redisConfig(cfg.Redis))
		if err != nil {
			log.Warn("redis unavailable, caching disabled", logger.Err(err))
		} else {
			defer cache.Close()
			health.AddPinger(cache)
			cache.WithBreaker(circuitbreaker.CacheBreaker("redis", redis.IsExpected,
				func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed",
						slog.String("breaker", name),
						slog.String("from", from.String()),
						slog.String("to", to.String()),
					)
				}))

			if cfg.Features.IsEnabled(config.FeatureCatalogCache) {
				store.catalog = redis.NewCatalogCache(store.catalog, cache, cfg.Progression.CatalogCacheTTL, log)
			}
			if cfg.Features.IsEnabled(config.FeatureLeaderboardCache) {
				rankingCache = redis.NewLeaderboardCache(cache)
			}
			log.Info("redis connection established", slog.String("addr", cfg.Redis.Host))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer bus.Close()

	if rankingCache != nil {
		if err := eventhandler.NewLeaderboardInvalidator(rankingCache, log).Register(bus); err != nil {
			return fmt.Errorf("failed to subscribe leaderboard invalidator: %w", err)
		}
	}

	var publisher shared.EventPublisher = shared.NoopPublisher{}
	if cfg.Features.IsEnabled(config.FeatureDomainEvents) {
		publisher = bus
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	eng := buildEngine(cfg, store, rankingCache, publisher, log)
	log.Info("progression engine ready",
		slog.Int("badge_rule_set", eng.Badges.Rules().Version()),
		slog.Int("country_bonus", cfg.Progression.CountryBonus),
		slog.Int("continent_bonus", cfg.Progression.ContinentBonus),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. BACKGROUND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: cfg.Progression.LeaderboardLocation,
	})
	if rankingCache != nil && cfg.Features.IsEnabled(config.FeatureLeaderboardWarmup) {
		warm := jobs.NewWarmLeaderboardJob(eng.Leaderboard, jobs.DefaultWarmLeaderboardConfig(), log)
		if err := sched.Register(warm, scheduler.NewIntervalSchedule(cfg.Progression.LeaderboardWarmInterval)); err != nil {
			return fmt.Errorf("failed to register %s: %w", warm.Name(), err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. OPS HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := ophttp.NewServer(ophttp.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		RequestLogging: cfg.Features.IsEnabled(config.FeatureRequestLogging),
		Version:        cfg.App.Version,
	}, health, log)
	if m := bus.Metrics(); m != nil {
		server.AddStats("event_bus", func() any { return m.Snapshot() })
	}
	server.AddStats("postgres", store.stats)
	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("ops server shutdown failed", logger.Err(err))
	}
	bus.Wait()

	log.Info("progression engine stopped")
	return nil
}

// openStorage connects to Postgres, applying migrations when configured, or
// falls back to memory stores when no database URL is set.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger, health *ophttp.CompositeHealthChecker) (*storage, error) {
	if cfg.UsesMemoryStore() {
		log.Warn("DATABASE_URL not set, using in-memory stores with an empty catalog")
		stores := memory.New()
		return &storage{
			catalog:      memory.NewCatalog(),
			visits:       stores.Visits,
			achievements: stores.Achievements,
			bonuses:      stores.Completions,
			feed:         stores.Feed,
			close:        func() {},
		}, nil
	}

	pgConfig := postgres.DefaultConfig()
	pgConfig.URL = cfg.Database.URL
	if cfg.Database.MaxOpenConns > 0 {
		pgConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	pgConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable yet",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			logger.Err(err),
		)
	})

	var conn *postgres.Connection
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgConfig)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date", slog.Int("applied", applied))
	}

	health.AddPinger(conn)

	return &storage{
		catalog:      postgres.NewCatalogRepository(conn),
		visits:       postgres.NewVisitRepository(conn),
		achievements: postgres.NewAchievementRepository(conn),
		bonuses:      postgres.NewCompletionRepository(conn),
		feed:         postgres.NewFeedRepository(conn),
		stats:        func() any { return conn.Stats() },
		close:        conn.Close,
	}, nil
}

func buildEngine(cfg *config.Config, store *storage, rankingCache leaderboard.Cache, publisher shared.EventPublisher, log *slog.Logger) *engine {
	ids := command.UUIDGenerator{}
	clock := timeutil.SystemClock{}
	gate := tier.StaticGate{}

	recorder := command.NewRecordVisitHandler(store.catalog, gate, store.visits, ids, clock, log)
	badges := command.NewBadgeEngine(achievement.DefaultRuleSet(), store.visits, store.achievements, ids, clock, log)
	completions := command.NewCompletionBonusEngine(store.catalog, gate, store.visits, store.bonuses, ids, clock,
		command.CompletionConfig{
			CountryBonus:   shared.Points(cfg.Progression.CountryBonus),
			ContinentBonus: shared.Points(cfg.Progression.ContinentBonus),
		}, log)
	emitter := eventhandler.NewActivityFeedEmitter(store.feed, ids, clock, log)

	submit := saga.NewSubmitVisitSaga(recorder, badges, completions, emitter, store.visits, store.catalog,
		publisher, clock, log, saga.DefaultSubmitVisitConfig())

	opts := []query.LeaderboardOption{query.WithLocation(cfg.Progression.LeaderboardLocation)}
	if rankingCache != nil {
		opts = append(opts, query.WithLeaderboardCache(rankingCache, cfg.Progression.LeaderboardCacheTTL))
	}
	ranker := query.NewGetLeaderboardHandler(store.visits, store.bonuses, log, opts...)

	return &engine{
		Submit:      submit,
		Badges:      badges,
		Completions: completions,
		Leaderboard: ranker,
		Progress:    query.NewGetUserProgressHandler(store.visits, store.achievements, store.bonuses, badges.Rules(), ranker),
		Feed:        query.NewGetActivityFeedHandler(store.feed),
	}
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = c.Host
	rc.Port = c.Port
	rc.Password = c.Password
	rc.DB = c.DB
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	rc.MinIdleConns = c.MinIdleConns
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	return rc
}
