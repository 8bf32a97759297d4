package players

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/playmatatu/balldrop/internal/game"
)

func TestNormalizeName(t *testing.T) {
	if got, err := normalizeName("  Ada  "); err != nil || got != "Ada" {
		t.Errorf("normalizeName = %q, %v", got, err)
	}
	for _, bad := range []string{"", "   ", strings.Repeat("n", maxNameLength+1)} {
		if _, err := normalizeName(bad); !errors.Is(err, ErrInvalidName) {
			t.Errorf("normalizeName(%q) err = %v", bad, err)
		}
	}
	if _, err := normalizeName(strings.Repeat("é", maxNameLength)); err != nil {
		t.Errorf("name length must count runes: %v", err)
	}
}

func TestValidatePIN(t *testing.T) {
	for pin, ok := range map[string]bool{
		"1234":  true,
		"0000":  true,
		"123":   false,
		"12345": false,
		"12a4":  false,
		"":      false,
	} {
		if err := validatePIN(pin); (err == nil) != ok {
			t.Errorf("validatePIN(%q) = %v, want ok=%v", pin, err, ok)
		}
	}
}

func TestPreferencesNormalize(t *testing.T) {
	p := Preferences{}
	if err := p.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Theme != game.ThemeLight || p.SpawnRate != game.DefaultSpawnRate {
		t.Errorf("defaults = %+v", p)
	}

	p = Preferences{Theme: game.ThemeDark, SpawnRate: 0.01}
	p.Normalize()
	if p.SpawnRate != game.MinSpawnRate {
		t.Errorf("spawn rate = %v, want clamped to %v", p.SpawnRate, game.MinSpawnRate)
	}

	p = Preferences{Theme: "neon"}
	if err := p.Normalize(); !errors.Is(err, game.ErrInvalidTheme) {
		t.Errorf("err = %v, want ErrInvalidTheme", err)
	}
}

func TestLockedErrorUnwraps(t *testing.T) {
	var err error = &LockedError{Until: time.Now().Add(time.Minute)}
	if !errors.Is(err, ErrPlayerLocked) {
		t.Errorf("LockedError should match ErrPlayerLocked")
	}
	var locked *LockedError
	if !errors.As(err, &locked) || locked.Until.IsZero() {
		t.Errorf("errors.As failed: %v", err)
	}
}
