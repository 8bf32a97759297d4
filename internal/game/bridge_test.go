package game

import (
	"math"
	"math/rand"
	"strconv"
	"testing"
)

// Helper to create a bridge over a fresh creative world with predictable ids.
func setupBridge(seed int64) (*Bridge, *World) {
	w := NewWorld(FieldWidth, FieldHeight, ModeCreative)
	n := 0
	b := NewBridge(w, rand.New(rand.NewSource(seed)), func() string {
		n++
		return "shape_" + strconv.Itoa(n)
	})
	return b, w
}

func assertInSync(t *testing.T, b *Bridge, w *World) {
	t.Helper()
	poses := w.ShapePositions()
	if len(poses) != b.Len() {
		t.Fatalf("world has %d shape bodies, layout has %d", len(poses), b.Len())
	}
	for _, s := range b.Layout() {
		h, ok := b.Handle(s.ID)
		if !ok {
			t.Fatalf("shape %s has no handle", s.ID)
		}
		p := poses[h]
		if math.Abs(p.X-s.X) > 1e-9 || math.Abs(p.Y-s.Y) > 1e-9 || math.Abs(p.Angle-s.Rotation) > 1e-9 {
			t.Errorf("shape %s record=(%.3f,%.3f,%.3f) body=(%.3f,%.3f,%.3f)", s.ID, s.X, s.Y, s.Rotation, p.X, p.Y, p.Angle)
		}
	}
}

func TestPlacementTiltIsPlusOrMinus(t *testing.T) {
	b, _ := setupBridge(7)
	plus, minus := 0, 0
	for i := 0; i < 100; i++ {
		s, ok := b.Place(LongLine, 800, 450)
		if !ok {
			t.Fatalf("placement %d refused", i)
		}
		switch s.Rotation {
		case PlacementTilt:
			plus++
		case -PlacementTilt:
			minus++
		default:
			t.Fatalf("line rotation = %v, want ±%v", s.Rotation, PlacementTilt)
		}
	}
	if plus == 0 || minus == 0 {
		t.Errorf("tilt not randomised: plus=%d minus=%d", plus, minus)
	}

	sq, _ := b.Place(SmallSquare, 800, 450)
	if sq.Rotation != 0 {
		t.Errorf("square placed with rotation %v", sq.Rotation)
	}
}

func TestPlaceRefusedAtCap(t *testing.T) {
	b, w := setupBridge(1)
	for i := 0; i < MaxShapes; i++ {
		if _, ok := b.Place(SmallSquare, float64(50+i%30*50), float64(100+i/30*80)); !ok {
			t.Fatalf("placement %d refused below the cap", i)
		}
	}
	if _, ok := b.Place(ShortLine, 800, 450); ok {
		t.Errorf("placement accepted past the cap")
	}
	if b.Len() != MaxShapes || w.ShapeCount() != MaxShapes {
		t.Errorf("layout=%d bodies=%d, want %d", b.Len(), w.ShapeCount(), MaxShapes)
	}
}

func TestMoveClampsToField(t *testing.T) {
	b, w := setupBridge(1)
	s, _ := b.Place(LargeSquare, 800, 450)
	width, height := LargeSquare.Size()

	moved, _, ok := b.Move(s.ID, -100, 5000)
	if !ok {
		t.Fatalf("move refused")
	}
	if moved.X != width/2 || moved.Y != FieldHeight-height/2 {
		t.Errorf("clamped to (%.1f, %.1f), want (%.1f, %.1f)", moved.X, moved.Y, width/2, FieldHeight-height/2)
	}
	assertInSync(t, b, w)

	if _, _, ok := b.Move("missing", 10, 10); ok {
		t.Errorf("move of unknown id reported success")
	}
}

func TestRotateKeepsRecordAndBodyEqual(t *testing.T) {
	b, w := setupBridge(3)
	line, _ := b.Place(MediumLine, 600, 300)
	sq, _ := b.Place(SmallSquare, 1000, 300)

	b.RotateBy(line.ID, 0.5)
	b.SetRotation(sq.ID, -2)
	b.Move(line.ID, 700, 320)
	assertInSync(t, b, w)

	got, _ := b.Shape(line.ID)
	if math.Abs(got.Rotation-(line.Rotation+0.5)) > 1e-12 {
		t.Errorf("rotation = %v, want %v", got.Rotation, line.Rotation+0.5)
	}
}

func TestShapeAtPrefersTopmost(t *testing.T) {
	b, _ := setupBridge(1)
	bottom, _ := b.Place(LargeSquare, 800, 450)
	top, _ := b.Place(SmallSquare, 810, 450)

	if s, ok := b.ShapeAt(810, 450); !ok || s.ID != top.ID {
		t.Errorf("ShapeAt over both = %s, want %s", s.ID, top.ID)
	}
	if s, ok := b.ShapeAt(770, 420); !ok || s.ID != bottom.ID {
		t.Errorf("ShapeAt over bottom only = %s, want %s", s.ID, bottom.ID)
	}
	if _, ok := b.ShapeAt(100, 100); ok {
		t.Errorf("ShapeAt on empty field found a shape")
	}
}

func TestShapeAtUsesRotatedFrame(t *testing.T) {
	b, _ := setupBridge(1)
	line, _ := b.Place(LongLine, 800, 450)
	b.SetRotation(line.ID, math.Pi/2)

	if _, ok := b.ShapeAt(800, 600); !ok {
		t.Errorf("point along the turned line not hit")
	}
	if _, ok := b.ShapeAt(950, 450); ok {
		t.Errorf("point along the unrotated extent should miss")
	}
}

func TestDeleteRemovesBody(t *testing.T) {
	b, w := setupBridge(1)
	a, _ := b.Place(SmallSquare, 400, 400)
	c, _ := b.Place(SmallSquare, 600, 400)

	if _, ok := b.Delete(a.ID); !ok {
		t.Fatalf("delete failed")
	}
	if _, ok := b.Delete(a.ID); ok {
		t.Errorf("second delete succeeded")
	}
	if _, ok := b.Handle(a.ID); ok {
		t.Errorf("deleted shape still has a handle")
	}
	if w.ShapeCount() != 1 || b.Layout()[0].ID != c.ID {
		t.Errorf("remaining layout = %v bodies=%d", b.Layout(), w.ShapeCount())
	}
}

func TestReplaceRebuildsFromScratch(t *testing.T) {
	b, w := setupBridge(1)
	old, _ := b.Place(SmallSquare, 400, 400)
	oldHandle, _ := b.Handle(old.ID)

	b.Replace(Layout{
		{ID: "x", Kind: ShortLine, X: 300, Y: 300, Rotation: 0.2},
		{ID: "y", Kind: LargeSquare, X: 900, Y: 600},
		{ID: "bad", Kind: "triangle", X: 1, Y: 1},
		{ID: "x", Kind: SmallSquare, X: 5, Y: 5},
	})

	if b.Len() != 2 || w.ShapeCount() != 2 {
		t.Fatalf("layout=%d bodies=%d, want 2", b.Len(), w.ShapeCount())
	}
	if w.HasShape(oldHandle) {
		t.Errorf("old body survived Replace")
	}
	assertInSync(t, b, w)
}
