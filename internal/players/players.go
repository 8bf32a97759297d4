package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/balldrop/internal/config"
	"github.com/playmatatu/balldrop/internal/database"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidPIN     = errors.New("incorrect PIN")
	ErrPlayerLocked   = errors.New("account temporarily locked")
	ErrNameTaken      = errors.New("name already taken")
	ErrInvalidName    = errors.New("name must be 1-40 characters")
	ErrPINFormat      = errors.New("PIN must be exactly 4 digits")
)

const maxNameLength = 40

const playerColumns = `id, name, pin_hash, pin_failed_attempts, pin_locked_until, theme, spawn_rate, onboarding_completed, created_at, last_active`

// LockedError carries the lockout expiry of a player.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%v until %s", ErrPlayerLocked, e.Until.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrPlayerLocked }

// Preferences are the per-player sandbox defaults.
type Preferences struct {
	Theme     game.Theme `json:"theme"`
	SpawnRate float64    `json:"spawn_rate"`
}

// Service manages player profiles.
type Service struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewService(db *sqlx.DB, cfg *config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

// normalizeName trims a display name and checks its length.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// validatePIN checks the PIN format (4 digits).
func validatePIN(pin string) error {
	if len(pin) != 4 || !isDigits(pin) {
		return ErrPINFormat
	}
	return nil
}

// isDigits checks if a string contains only digits
func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Create registers a new player with a bcrypt-hashed PIN.
func (s *Service) Create(ctx context.Context, name, pin string) (*models.Player, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := validatePIN(pin); err != nil {
		return nil, err
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	var p models.Player
	err = s.db.GetContext(ctx, &p, `
		INSERT INTO players (name, pin_hash, theme, spawn_rate, created_at, last_active)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+playerColumns,
		name, string(pinHash), string(game.ThemeLight), s.defaultSpawnRate())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("insert player: %w", err)
	}
	log.Printf("[PLAYER] Created player %d (%s)", p.ID, p.Name)
	return &p, nil
}

func (s *Service) defaultSpawnRate() float64 {
	if s.cfg != nil && s.cfg.DefaultSpawnRate > 0 {
		return game.ClampSpawnRate(s.cfg.DefaultSpawnRate)
	}
	return game.DefaultSpawnRate
}

// Get loads a player by ID.
func (s *Service) Get(ctx context.Context, id int) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %d: %w", id, err)
	}
	return &p, nil
}

// Login checks name and PIN and returns the player.
func (s *Service) Login(ctx context.Context, name, pin string) (*models.Player, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, ErrPlayerNotFound
	}
	var p models.Player
	err = s.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %q: %w", name, err)
	}
	if err := s.checkPIN(ctx, &p, pin); err != nil {
		return nil, err
	}
	s.db.ExecContext(ctx, `UPDATE players SET last_active = NOW() WHERE id = $1`, p.ID)
	return &p, nil
}

// VerifyPIN confirms pin for an authenticated player.
func (s *Service) VerifyPIN(ctx context.Context, id int, pin string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.checkPIN(ctx, p, pin)
}

// checkPIN compares pin against the stored hash, counting failures and
// locking the account after PINMaxAttempts.
func (s *Service) checkPIN(ctx context.Context, p *models.Player, pin string) error {
	if p.PINLockedUntil.Valid && p.PINLockedUntil.Time.After(time.Now()) {
		return &LockedError{Until: p.PINLockedUntil.Time}
	}
	if !p.PINHash.Valid || p.PINHash.String == "" {
		return ErrInvalidPIN
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PINHash.String), []byte(pin)); err != nil {
		attempts := p.PINFailedAttempts + 1
		maxAttempts, lockout := 5, 15
		if s.cfg != nil && s.cfg.PINMaxAttempts > 0 {
			maxAttempts, lockout = s.cfg.PINMaxAttempts, s.cfg.PINLockoutMinutes
		}
		if attempts >= maxAttempts {
			until := time.Now().Add(time.Duration(lockout) * time.Minute)
			s.db.ExecContext(ctx, `UPDATE players SET pin_failed_attempts = $1, pin_locked_until = $2 WHERE id = $3`, attempts, until, p.ID)
			log.Printf("[PLAYER] Player %d locked until %s after %d failed PIN attempts", p.ID, until.Format(time.RFC3339), attempts)
			return &LockedError{Until: until}
		}
		s.db.ExecContext(ctx, `UPDATE players SET pin_failed_attempts = $1 WHERE id = $2`, attempts, p.ID)
		return ErrInvalidPIN
	}

	if p.PINFailedAttempts > 0 || p.PINLockedUntil.Valid {
		s.db.ExecContext(ctx, `UPDATE players SET pin_failed_attempts = 0, pin_locked_until = NULL WHERE id = $1`, p.ID)
	}
	return nil
}

// Normalize validates and clamps preferences received from a client.
func (p *Preferences) Normalize() error {
	if p.Theme == "" {
		p.Theme = game.ThemeLight
	}
	if !p.Theme.Valid() {
		return game.ErrInvalidTheme
	}
	if p.SpawnRate == 0 {
		p.SpawnRate = game.DefaultSpawnRate
	}
	p.SpawnRate = game.ClampSpawnRate(p.SpawnRate)
	return nil
}

// UpdatePreferences stores theme and spawn rate.
func (s *Service) UpdatePreferences(ctx context.Context, id int, prefs Preferences) (*models.Player, error) {
	if err := prefs.Normalize(); err != nil {
		return nil, err
	}
	var p models.Player
	err := s.db.GetContext(ctx, &p, `
		UPDATE players SET theme = $1, spawn_rate = $2 WHERE id = $3
		RETURNING `+playerColumns,
		string(prefs.Theme), prefs.SpawnRate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update preferences of %d: %w", id, err)
	}
	return &p, nil
}

// CompleteOnboarding marks the tutorial as seen.
func (s *Service) CompleteOnboarding(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET onboarding_completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete onboarding of %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ResetAllData wipes a player's lifetime stats and saved layouts and restores
// default preferences, after confirming the PIN. extra runs inside the same
// transaction.
func (s *Service) ResetAllData(ctx context.Context, id int, pin string, extra ...func(tx *sqlx.Tx) error) error {
	if err := s.VerifyPIN(ctx, id, pin); err != nil {
		return err
	}
	err := database.WithTx(s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM saved_layouts WHERE player_id = $1`, id); err != nil {
			return fmt.Errorf("delete layouts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE players SET theme = $1, spawn_rate = $2, onboarding_completed = FALSE WHERE id = $3
		`, string(game.ThemeLight), s.defaultSpawnRate(), id); err != nil {
			return fmt.Errorf("reset preferences: %w", err)
		}
		for _, fn := range extra {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[PLAYER] Player %d reset all data", id)
	return nil
}
