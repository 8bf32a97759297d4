package layouts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/playmatatu/balldrop/internal/game"
)

func TestNormalizeName(t *testing.T) {
	if got, err := normalizeName("  zig zag "); err != nil || got != "zig zag" {
		t.Errorf("normalizeName = %q, %v", got, err)
	}
	if _, err := normalizeName(strings.Repeat("x", maxNameLength+1)); !errors.Is(err, ErrInvalidName) {
		t.Errorf("overlong name err = %v", err)
	}
}

func TestSaveRejectsBeforeTouchingTheDatabase(t *testing.T) {
	s := NewStore(nil)
	valid := &game.SaveFile{Version: game.SaveVersion, Shapes: game.Layout{}}

	if _, err := s.Save(context.Background(), 1, " ", valid); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name err = %v", err)
	}
	bad := &game.SaveFile{Version: 3, Shapes: game.Layout{}}
	if _, err := s.Save(context.Background(), 1, "ok", bad); !errors.Is(err, game.ErrInvalidSave) {
		t.Errorf("bad version err = %v", err)
	}
}
