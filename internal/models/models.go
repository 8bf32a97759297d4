package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Player represents a sandbox profile
type Player struct {
	ID                  int            `db:"id" json:"id"`
	Name                string         `db:"name" json:"name"`
	PINHash             sql.NullString `db:"pin_hash" json:"-"`
	PINFailedAttempts   int            `db:"pin_failed_attempts" json:"-"`
	PINLockedUntil      sql.NullTime   `db:"pin_locked_until" json:"-"`
	Theme               string         `db:"theme" json:"theme"`
	SpawnRate           float64        `db:"spawn_rate" json:"spawn_rate"`
	OnboardingCompleted bool           `db:"onboarding_completed" json:"onboarding_completed"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	LastActive          sql.NullTime   `db:"last_active" json:"last_active,omitempty"`
}

// LifetimeStats holds the totals accumulated over every session of a player
type LifetimeStats struct {
	PlayerID        int       `db:"player_id" json:"player_id"`
	PlayTimeMs      int64     `db:"play_time_ms" json:"play_time_ms"`
	BallsDropped    int64     `db:"balls_dropped" json:"balls_dropped"`
	BallsDelivered  int64     `db:"balls_delivered" json:"balls_delivered"`
	ShapesPlaced    int64     `db:"shapes_placed" json:"shapes_placed"`
	SessionsStarted int64     `db:"sessions_started" json:"sessions_started"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SavedLayout is a named save file stored for a player
type SavedLayout struct {
	ID         int             `db:"id" json:"id"`
	PlayerID   int             `db:"player_id" json:"player_id"`
	Name       string          `db:"name" json:"name"`
	Data       json.RawMessage `db:"data" json:"data,omitempty"`
	ShapeCount int             `db:"shape_count" json:"shape_count"`
	Mode       string          `db:"mode" json:"mode"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
