package game

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSaveFileAcceptsValidFile(t *testing.T) {
	data := `{
		"version": 1,
		"shapes": [
			{"id": "shape_1", "kind": "longLine", "x": 400, "y": 300, "rotation": 0.087},
			{"id": "shape_2", "kind": "smallSquare", "x": 900, "y": 600, "rotation": 0}
		],
		"spawnRate": 20,
		"sessionStats": {"balls_dropped": 4},
		"isPaused": true
	}`
	f, err := ParseSaveFile([]byte(data))
	if err != nil {
		t.Fatalf("ParseSaveFile: %v", err)
	}
	if len(f.Shapes) != 2 || f.Shapes[0].Kind != LongLine {
		t.Errorf("shapes = %+v", f.Shapes)
	}
	if f.Mode != ModeCreative {
		t.Errorf("missing mode should default to creative, got %q", f.Mode)
	}
	if f.SpawnRate != MaxSpawnRate {
		t.Errorf("spawn rate = %v, want clamped %v", f.SpawnRate, MaxSpawnRate)
	}
	if f.SessionStats.BallsDropped != 4 || !f.IsPaused {
		t.Errorf("stats=%+v paused=%v", f.SessionStats, f.IsPaused)
	}
}

func TestParseSaveFileRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"wrong version": `{"version": 2, "shapes": []}`,
		"no shapes":     `{"version": 1}`,
		"shapes object": `{"version": 1, "shapes": {}}`,
		"unknown kind":  `{"version": 1, "shapes": [{"id": "a", "kind": "circle", "x": 1, "y": 1}]}`,
		"missing id":    `{"version": 1, "shapes": [{"kind": "smallSquare", "x": 1, "y": 1}]}`,
		"duplicate id":  `{"version": 1, "shapes": [{"id": "a", "kind": "smallSquare"}, {"id": "a", "kind": "longLine"}]}`,
		"bad mode":      `{"version": 1, "shapes": [], "mode": "arcade"}`,
	}
	for name, data := range cases {
		if _, err := ParseSaveFile([]byte(data)); !errors.Is(err, ErrInvalidSave) {
			t.Errorf("%s: err = %v, want ErrInvalidSave", name, err)
		}
	}
}

func TestParseSaveFileRejectsTooManyShapes(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"version": 1, "shapes": [`)
	for i := 0; i <= MaxShapes; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"id": "s`)
		b.WriteString(strings.Repeat("x", i))
		b.WriteString(`", "kind": "smallSquare", "x": 10, "y": 10}`)
	}
	b.WriteString(`]}`)
	if _, err := ParseSaveFile([]byte(b.String())); !errors.Is(err, ErrInvalidSave) {
		t.Errorf("err = %v, want ErrInvalidSave", err)
	}
}

func TestSaveFileRoundTripsThroughSandbox(t *testing.T) {
	s, _ := setupSandbox(Options{})
	mustApply(t, s, Place{Kind: MediumLine, X: 500, Y: 500, AtPoint: true})
	data, err := s.SaveFile().MarshalIndent()
	if err != nil {
		t.Fatalf("MarshalIndent: %v", err)
	}
	f, err := ParseSaveFile(data)
	if err != nil {
		t.Fatalf("ParseSaveFile of own output: %v", err)
	}
	if f.Shapes[0] != s.Layout()[0] {
		t.Errorf("shape = %+v, want %+v", f.Shapes[0], s.Layout()[0])
	}
	if strings.Contains(string(data), "handle") {
		t.Errorf("save file leaks world handles: %s", data)
	}
}
