package game

import "math/rand"

// Shape is a user-placed obstacle. It never holds a world handle; the Bridge
// resolves ids to handles.
type Shape struct {
	ID       string    `json:"id" msgpack:"id"`
	Kind     ShapeKind `json:"kind" msgpack:"kind"`
	X        float64   `json:"x" msgpack:"x"`
	Y        float64   `json:"y" msgpack:"y"`
	Rotation float64   `json:"rotation" msgpack:"rotation"`
}

// Layout is the ordered shape list, bottom to top.
type Layout []Shape

// Clone returns a copy that shares nothing with l.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	copy(out, l)
	return out
}

func (l Layout) index(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Bridge keeps the layout and the world in step. Every edit goes through it so
// a shape record and its static body always carry the same transform.
type Bridge struct {
	world   *World
	layout  Layout
	handles map[string]Handle
	rng     *rand.Rand
	newID   func() string
}

func NewBridge(world *World, rng *rand.Rand, newID func() string) *Bridge {
	return &Bridge{
		world:   world,
		handles: make(map[string]Handle),
		rng:     rng,
		newID:   newID,
	}
}

// Layout returns a copy of the current layout.
func (b *Bridge) Layout() Layout {
	return b.layout.Clone()
}

func (b *Bridge) Len() int {
	return len(b.layout)
}

// Shape looks up a shape record by id.
func (b *Bridge) Shape(id string) (Shape, bool) {
	i := b.layout.index(id)
	if i < 0 {
		return Shape{}, false
	}
	return b.layout[i], true
}

// Handle resolves a shape id to its current world handle.
func (b *Bridge) Handle(id string) (Handle, bool) {
	h, ok := b.handles[id]
	return h, ok
}

// Place adds a shape of kind k centred at (x, y). Lines get a random tilt of
// plus or minus PlacementTilt. It returns false when the layout is full.
func (b *Bridge) Place(k ShapeKind, x, y float64) (Shape, bool) {
	if len(b.layout) >= MaxShapes || !k.Valid() {
		return Shape{}, false
	}
	x, y = clampToField(k, x, y)
	s := Shape{ID: b.newID(), Kind: k, X: x, Y: y}
	if k.IsLine() {
		s.Rotation = PlacementTilt
		if b.rng.Intn(2) == 0 {
			s.Rotation = -PlacementTilt
		}
	}
	b.handles[s.ID] = b.world.AddShapeBody(s)
	b.layout = append(b.layout, s)
	return s, true
}

// Move drags a shape to (x, y), clamped so its unrotated box stays inside the
// field. Balls under the new position are crushed and returned.
func (b *Bridge) Move(id string, x, y float64) (Shape, []Handle, bool) {
	i := b.layout.index(id)
	if i < 0 {
		return Shape{}, nil, false
	}
	s := &b.layout[i]
	s.X, s.Y = clampToField(s.Kind, x, y)
	return *s, b.sync(s), true
}

// SetRotation turns a shape to an absolute angle.
func (b *Bridge) SetRotation(id string, rotation float64) (Shape, []Handle, bool) {
	i := b.layout.index(id)
	if i < 0 {
		return Shape{}, nil, false
	}
	s := &b.layout[i]
	s.Rotation = rotation
	return *s, b.sync(s), true
}

// RotateBy turns a shape by delta radians.
func (b *Bridge) RotateBy(id string, delta float64) (Shape, []Handle, bool) {
	s, ok := b.Shape(id)
	if !ok {
		return Shape{}, nil, false
	}
	return b.SetRotation(id, s.Rotation+delta)
}

func (b *Bridge) sync(s *Shape) []Handle {
	h, ok := b.handles[s.ID]
	if !ok {
		return nil
	}
	return b.world.SetStaticBodyTransform(h, s.X, s.Y, s.Rotation)
}

// Delete removes a shape and its body.
func (b *Bridge) Delete(id string) (Shape, bool) {
	i := b.layout.index(id)
	if i < 0 {
		return Shape{}, false
	}
	s := b.layout[i]
	if h, ok := b.handles[id]; ok {
		b.world.RemoveShapeBody(h)
		delete(b.handles, id)
	}
	b.layout = append(b.layout[:i], b.layout[i+1:]...)
	return s, true
}

// ShapeAt returns the topmost shape containing (x, y).
func (b *Bridge) ShapeAt(x, y float64) (Shape, bool) {
	p := Vec2{X: x, Y: y}
	for i := len(b.layout) - 1; i >= 0; i-- {
		if pointInShape(p, b.layout[i]) {
			return b.layout[i], true
		}
	}
	return Shape{}, false
}

// Replace drops every shape body and rebuilds the layout from l. Entries with
// unknown kinds or without an id are skipped; at most MaxShapes are kept.
func (b *Bridge) Replace(l Layout) {
	b.world.ClearAllShapes()
	b.handles = make(map[string]Handle, len(l))
	b.layout = make(Layout, 0, len(l))
	for _, s := range l {
		if len(b.layout) >= MaxShapes {
			break
		}
		if !s.Kind.Valid() || s.ID == "" || !finite(s.X, s.Y, s.Rotation) {
			continue
		}
		if _, dup := b.handles[s.ID]; dup {
			continue
		}
		b.handles[s.ID] = b.world.AddShapeBody(s)
		b.layout = append(b.layout, s)
	}
}

// Rebind moves the layout into a fresh world, typically after a mode change.
func (b *Bridge) Rebind(world *World) {
	b.world = world
	b.Replace(b.layout.Clone())
}
