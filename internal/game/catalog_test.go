package game

import "testing"

func TestCatalogDimensions(t *testing.T) {
	cases := []struct {
		kind          ShapeKind
		width, height float64
		line          bool
	}{
		{ShortLine, 96, 8, true},
		{MediumLine, 192, 8, true},
		{LongLine, 320, 8, true},
		{SmallSquare, 48, 48, false},
		{LargeSquare, 96, 96, false},
	}
	for _, c := range cases {
		w, h := c.kind.Size()
		if !near(w, c.width) || !near(h, c.height) || c.kind.IsLine() != c.line {
			t.Errorf("%s: size=(%v,%v) line=%v, want (%v,%v) line=%v", c.kind, w, h, c.kind.IsLine(), c.width, c.height, c.line)
		}
	}
	if !near(BallDiameter, 24) {
		t.Errorf("ball diameter = %v, want 24", BallDiameter)
	}
}

func TestParseShapeKind(t *testing.T) {
	if k, err := ParseShapeKind("largeSquare"); err != nil || k != LargeSquare {
		t.Errorf("ParseShapeKind(largeSquare) = %v, %v", k, err)
	}
	if _, err := ParseShapeKind("hexagon"); err != ErrUnknownShapeKind {
		t.Errorf("ParseShapeKind(hexagon) err = %v", err)
	}
	kinds := ShapeKinds()
	if len(kinds) != 5 || kinds[0] != ShortLine || kinds[4] != LargeSquare {
		t.Errorf("ShapeKinds = %v", kinds)
	}
}

func TestThemePalettes(t *testing.T) {
	for _, th := range []Theme{ThemeLight, ThemeDark} {
		if n := len(BallPalette(th)); n != 20 {
			t.Errorf("%s palette has %d colours, want 20", th, n)
		}
		for _, k := range ShapeKinds() {
			if ShapeColor(k, th) == "" {
				t.Errorf("%s has no %s colour", th, k)
			}
		}
	}
	if _, err := ParseTheme("sepia"); err != ErrInvalidTheme {
		t.Errorf("ParseTheme(sepia) err = %v", err)
	}
}
