package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/balldrop/internal/models"
	keys "github.com/playmatatu/balldrop/internal/redis"
	"github.com/redis/go-redis/v9"
)

const cacheTTL = 10 * time.Minute

// Store keeps lifetime statistics in PostgreSQL with a short-lived Redis copy
// for profile reads.
type Store struct {
	db  *sqlx.DB
	rdb *redis.Client
}

func NewStore(db *sqlx.DB, rdb *redis.Client) *Store {
	return &Store{db: db, rdb: rdb}
}

func cacheKey(playerID int) string {
	return keys.PlayerKey(playerID, "lifetime_stats")
}

// AddDeltas upserts every delta in one transaction, in player order so
// concurrent flushes lock rows the same way.
func (s *Store) AddDeltas(ctx context.Context, deltas map[int]Delta) error {
	ids := make([]int, 0, len(deltas))
	for pid := range deltas {
		ids = append(ids, pid)
	}
	sort.Ints(ids)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats flush: %w", err)
	}
	defer tx.Rollback()

	for _, pid := range ids {
		d := deltas[pid]
		if d.IsZero() {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lifetime_stats (player_id, play_time_ms, balls_dropped, balls_delivered, shapes_placed, sessions_started, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (player_id) DO UPDATE SET
				play_time_ms = lifetime_stats.play_time_ms + EXCLUDED.play_time_ms,
				balls_dropped = lifetime_stats.balls_dropped + EXCLUDED.balls_dropped,
				balls_delivered = lifetime_stats.balls_delivered + EXCLUDED.balls_delivered,
				shapes_placed = lifetime_stats.shapes_placed + EXCLUDED.shapes_placed,
				sessions_started = lifetime_stats.sessions_started + EXCLUDED.sessions_started,
				updated_at = NOW()
		`, pid, d.PlayTimeMs, d.BallsDropped, d.BallsDelivered, d.ShapesPlaced, d.SessionsStarted); err != nil {
			return fmt.Errorf("upsert stats for player %d: %w", pid, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE players SET last_active = NOW() WHERE id = $1`, pid); err != nil {
			return fmt.Errorf("touch player %d: %w", pid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats flush: %w", err)
	}

	if s.rdb != nil {
		cached := make([]string, 0, len(ids))
		for _, pid := range ids {
			cached = append(cached, cacheKey(pid))
		}
		if err := s.rdb.Del(ctx, cached...).Err(); err != nil {
			log.Printf("[STATS] Failed to invalidate cache: %v", err)
		}
	}
	return nil
}

// Get returns the lifetime totals of a player; a player who never flushed
// anything gets zeros.
func (s *Store) Get(ctx context.Context, playerID int) (*models.LifetimeStats, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey(playerID)).Bytes(); err == nil {
			var cached models.LifetimeStats
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("[STATS] Cache read failed for player %d: %v", playerID, err)
		}
	}

	var st models.LifetimeStats
	err := s.db.GetContext(ctx, &st, `
		SELECT player_id, play_time_ms, balls_dropped, balls_delivered, shapes_placed, sessions_started, updated_at
		FROM lifetime_stats WHERE player_id = $1
	`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.LifetimeStats{PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stats for player %d: %w", playerID, err)
	}

	if s.rdb != nil {
		if b, err := json.Marshal(st); err == nil {
			s.rdb.Set(ctx, cacheKey(playerID), b, cacheTTL)
		}
	}
	return &st, nil
}

// ResetTx zeroes a player's lifetime totals inside tx.
func (s *Store) ResetTx(ctx context.Context, tx *sqlx.Tx, playerID int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM lifetime_stats WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("reset stats for player %d: %w", playerID, err)
	}
	if s.rdb != nil {
		s.rdb.Del(ctx, cacheKey(playerID))
	}
	return nil
}
