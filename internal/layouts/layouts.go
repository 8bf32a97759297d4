package layouts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/models"
)

var (
	ErrLayoutNotFound = errors.New("layout not found")
	ErrInvalidName    = errors.New("layout name must be 1-80 characters")
	ErrTooManyLayouts = errors.New("saved layout limit reached")
)

const (
	maxNameLength       = 80
	MaxLayoutsPerPlayer = 50
)

// Store keeps named save files per player in the saved_layouts table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// List returns a player's layouts, newest first, without their data.
func (s *Store) List(ctx context.Context, playerID int) ([]models.SavedLayout, error) {
	rows := []models.SavedLayout{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, player_id, name, shape_count, mode, created_at, updated_at
		FROM saved_layouts WHERE player_id = $1
		ORDER BY updated_at DESC
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list layouts of %d: %w", playerID, err)
	}
	return rows, nil
}

// Save stores f under name, replacing a layout of the same name.
func (s *Store) Save(ctx context.Context, playerID int, name string, f *game.SaveFile) (*models.SavedLayout, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM saved_layouts WHERE player_id = $1 AND name <> $2`, playerID, name); err != nil {
		return nil, fmt.Errorf("count layouts: %w", err)
	}
	if count >= MaxLayoutsPerPlayer {
		return nil, ErrTooManyLayouts
	}

	var l models.SavedLayout
	err = s.db.GetContext(ctx, &l, `
		INSERT INTO saved_layouts (player_id, name, data, shape_count, mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (player_id, name) DO UPDATE SET
			data = EXCLUDED.data,
			shape_count = EXCLUDED.shape_count,
			mode = EXCLUDED.mode,
			updated_at = NOW()
		RETURNING id, player_id, name, shape_count, mode, created_at, updated_at
	`, playerID, name, data, len(f.Shapes), string(f.Mode))
	if err != nil {
		return nil, fmt.Errorf("store layout: %w", err)
	}
	log.Printf("[LAYOUT] Player %d saved %q (%d shapes)", playerID, name, l.ShapeCount)
	return &l, nil
}

// Get returns a layout and its decoded save file. Stored data goes through
// the same validation as an uploaded file.
func (s *Store) Get(ctx context.Context, playerID, id int) (*models.SavedLayout, *game.SaveFile, error) {
	var l models.SavedLayout
	err := s.db.GetContext(ctx, &l, `
		SELECT id, player_id, name, data, shape_count, mode, created_at, updated_at
		FROM saved_layouts WHERE id = $1 AND player_id = $2
	`, id, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrLayoutNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load layout %d: %w", id, err)
	}
	f, err := game.ParseSaveFile(l.Data)
	if err != nil {
		log.Printf("[LAYOUT] Stored layout %d is invalid: %v", id, err)
		return nil, nil, err
	}
	return &l, f, nil
}

// Delete removes a layout owned by playerID.
func (s *Store) Delete(ctx context.Context, playerID, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_layouts WHERE id = $1 AND player_id = $2`, id, playerID)
	if err != nil {
		return fmt.Errorf("delete layout %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLayoutNotFound
	}
	return nil
}
