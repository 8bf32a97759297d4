package game

import "math"

// toLocal expresses p in the frame of a shape centred at c and turned by rot.
func toLocal(p, c Vec2, rot float64) Vec2 {
	return p.Minus(c).Rotate(-rot)
}

// pointInShape tests p against the rotated rectangle of s.
func pointInShape(p Vec2, s Shape) bool {
	w, h := s.Kind.Size()
	local := toLocal(p, Vec2{X: s.X, Y: s.Y}, s.Rotation)
	return math.Abs(local.X) <= w/2 && math.Abs(local.Y) <= h/2
}

// clampToField keeps the unrotated bounding box of a kind inside the field.
// Rotation is deliberately ignored, so a turned line may poke past the edge.
func clampToField(k ShapeKind, x, y float64) (float64, float64) {
	w, h := k.Size()
	return clamp(x, w/2, FieldWidth-w/2), clamp(y, h/2, FieldHeight-h/2)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// touchAngle is the direction from the first to the second contact point.
func touchAngle(a, b Vec2) float64 {
	return b.Minus(a).Angle()
}

// finite reports whether every value is a real number.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
