package postgres

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_catalog", UpSQL: migration001Up},
		{Version: 2, Name: "create_progression", UpSQL: migration002Up},
		{Version: 3, Name: "create_activity_feed", UpSQL: migration003Up},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CATALOG
// Read-only reference data. Seeded outside this service.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS countries (
    id VARCHAR(8) PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    continent VARCHAR(30) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_countries_continent ON countries(continent);

CREATE TABLE IF NOT EXISTS landmarks (
    id VARCHAR(100) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    country_id VARCHAR(8) NOT NULL REFERENCES countries(id),
    continent VARCHAR(30) NOT NULL,
    category VARCHAR(20) NOT NULL,
    point_value INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_category CHECK (category IN ('official', 'premium')),
    CONSTRAINT valid_point_value CHECK (point_value >= 0)
);

CREATE INDEX IF NOT EXISTS idx_landmarks_country_category ON landmarks(country_id, category);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESSION
// The unique constraints below are the concurrency guards of the engine.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS visits (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    landmark_id VARCHAR(100) NOT NULL,
    country_id VARCHAR(8) NOT NULL,
    continent VARCHAR(30) NOT NULL,
    category VARCHAR(20) NOT NULL,
    points_earned INTEGER NOT NULL,
    visited_at TIMESTAMP WITH TIME ZONE NOT NULL,
    photos TEXT[] NOT NULL DEFAULT '{}',
    diary_notes TEXT,
    travel_tips TEXT,

    CONSTRAINT uq_visits_user_landmark UNIQUE (user_id, landmark_id),
    CONSTRAINT valid_points_earned CHECK (points_earned >= 0)
);

CREATE INDEX IF NOT EXISTS idx_visits_user_country ON visits(user_id, country_id);
CREATE INDEX IF NOT EXISTS idx_visits_visited_at ON visits(visited_at);

CREATE TABLE IF NOT EXISTS achievements (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    badge_type VARCHAR(50) NOT NULL,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT uq_achievements_user_badge UNIQUE (user_id, badge_type)
);

CREATE TABLE IF NOT EXISTS completion_bonuses (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    scope VARCHAR(20) NOT NULL,
    scope_id VARCHAR(100) NOT NULL,
    bonus_points INTEGER NOT NULL,
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT uq_completion_user_scope UNIQUE (user_id, scope, scope_id),
    CONSTRAINT valid_scope CHECK (scope IN ('country', 'continent')),
    CONSTRAINT valid_bonus_points CHECK (bonus_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_completion_awarded_at ON completion_bonuses(awarded_at);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ACTIVITY FEED
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS activity_feed (
    id UUID PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    activity_type VARCHAR(30) NOT NULL,
    payload JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_activity_type CHECK (activity_type IN ('visit', 'badge', 'country_complete', 'continent_complete'))
);

CREATE INDEX IF NOT EXISTS idx_activity_feed_user_created ON activity_feed(user_id, created_at DESC);
`
