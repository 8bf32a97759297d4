package game

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is one input to a sandbox. Commands are plain values so they can be
// queued to a session goroutine and decoded from the wire.
type Command interface {
	apply(s *Sandbox) (Result, error)
}

// Result reports what a command did. Applied is false when the command had no
// effect, for example a stale shape id or a full layout.
type Result struct {
	Applied bool      `json:"applied" msgpack:"applied"`
	ShapeID string    `json:"shape_id,omitempty" msgpack:"shape_id,omitempty"`
	Crushed int       `json:"crushed,omitempty" msgpack:"crushed,omitempty"`
	Save    *SaveFile `json:"save,omitempty" msgpack:"save,omitempty"`
	Frame   *Frame    `json:"frame,omitempty" msgpack:"frame,omitempty"`
}

var noEffect = Result{}

// Place adds a shape. Without AtPoint the shape goes to the field centre.
type Place struct {
	Kind    ShapeKind `json:"kind" msgpack:"kind"`
	X       float64   `json:"x" msgpack:"x"`
	Y       float64   `json:"y" msgpack:"y"`
	AtPoint bool      `json:"at_point" msgpack:"at_point"`
}

func (c Place) apply(s *Sandbox) (Result, error) {
	if !c.Kind.Valid() {
		return noEffect, fmt.Errorf("%w: %q", ErrUnknownShapeKind, c.Kind)
	}
	if s.bridge.Len() >= MaxShapes {
		return noEffect, nil
	}
	x, y := FieldWidth/2, FieldHeight/2
	if c.AtPoint {
		if !finite(c.X, c.Y) {
			return noEffect, nil
		}
		x, y = c.X, c.Y
	}

	before := s.bridge.Layout()
	shape, ok := s.bridge.Place(c.Kind, x, y)
	if !ok {
		return noEffect, nil
	}
	s.checkpoint(before)
	s.selected = shape.ID
	s.stats.ShapesPlaced++
	s.emit(Event{Type: EventShapePlaced, ShapeID: shape.ID, Kind: shape.Kind})

	// A shape dropped onto balls crushes them like a moved one.
	var crushed []Handle
	if h, ok := s.bridge.Handle(shape.ID); ok {
		crushed = s.world.CrushOverlapping(h)
	}
	return Result{Applied: true, ShapeID: shape.ID, Crushed: len(crushed)}, nil
}

// BeginDrag grabs a shape by id, or the topmost shape under (X, Y) when
// ShapeID is empty. The pointer offset is kept for the whole drag.
type BeginDrag struct {
	ShapeID string  `json:"shape_id" msgpack:"shape_id"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	AtPoint bool    `json:"at_point" msgpack:"at_point"`
}

func (c BeginDrag) apply(s *Sandbox) (Result, error) {
	var (
		shape Shape
		ok    bool
	)
	if c.ShapeID != "" {
		shape, ok = s.bridge.Shape(c.ShapeID)
	} else {
		shape, ok = s.bridge.ShapeAt(c.X, c.Y)
	}
	if !ok {
		s.selected = ""
		return noEffect, nil
	}

	d := &dragState{shapeID: shape.ID, before: s.bridge.Layout()}
	if c.ShapeID == "" || c.AtPoint {
		d.offset = Vec2{X: c.X - shape.X, Y: c.Y - shape.Y}
	}
	s.drag = d
	s.selected = shape.ID
	return Result{Applied: true, ShapeID: shape.ID}, nil
}

// Drag moves the grabbed shape so the pointer keeps its grab offset.
type Drag struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (c Drag) apply(s *Sandbox) (Result, error) {
	if s.drag == nil || !finite(c.X, c.Y) {
		return noEffect, nil
	}
	prev, ok := s.bridge.Shape(s.drag.shapeID)
	if !ok {
		s.drag = nil
		return noEffect, nil
	}
	shape, crushed, _ := s.bridge.Move(s.drag.shapeID, c.X-s.drag.offset.X, c.Y-s.drag.offset.Y)
	if shape.X != prev.X || shape.Y != prev.Y {
		s.drag.moved = true
	}
	return Result{Applied: true, ShapeID: shape.ID, Crushed: len(crushed)}, nil
}

// EndDrag releases the grabbed shape. A drag that moved the shape becomes one
// undo step.
type EndDrag struct{}

func (EndDrag) apply(s *Sandbox) (Result, error) {
	d := s.drag
	if d == nil {
		return noEffect, nil
	}
	s.drag = nil
	if d.moved {
		s.checkpoint(d.before)
	}
	return Result{Applied: d.moved, ShapeID: d.shapeID}, nil
}

// RotateBy turns a shape by Delta radians. An empty ShapeID means the
// selection.
type RotateBy struct {
	ShapeID string  `json:"shape_id" msgpack:"shape_id"`
	Delta   float64 `json:"delta" msgpack:"delta"`
}

func (c RotateBy) apply(s *Sandbox) (Result, error) {
	if c.Delta == 0 || !finite(c.Delta) {
		return noEffect, nil
	}
	return s.rotate(c.ShapeID, c.Delta)
}

// Wheel turns a shape by one wheel step in the direction of DeltaY.
type Wheel struct {
	ShapeID string  `json:"shape_id" msgpack:"shape_id"`
	DeltaY  float64 `json:"delta_y" msgpack:"delta_y"`
}

func (c Wheel) apply(s *Sandbox) (Result, error) {
	if c.DeltaY == 0 || !finite(c.DeltaY) {
		return noEffect, nil
	}
	return s.rotate(c.ShapeID, math.Copysign(WheelStep, c.DeltaY))
}

func (s *Sandbox) rotate(id string, delta float64) (Result, error) {
	shape, ok := s.targetShape(id)
	if !ok {
		return noEffect, nil
	}
	if s.drag != nil && s.drag.shapeID == shape.ID {
		s.drag.moved = true
	} else {
		s.checkpoint(s.bridge.Layout())
	}
	_, crushed, _ := s.bridge.RotateBy(shape.ID, delta)
	return Result{Applied: true, ShapeID: shape.ID, Crushed: len(crushed)}, nil
}

// BeginGesture starts a two-finger rotation with contact points A and B.
type BeginGesture struct {
	ShapeID string `json:"shape_id" msgpack:"shape_id"`
	A       Vec2   `json:"a" msgpack:"a"`
	B       Vec2   `json:"b" msgpack:"b"`
}

func (c BeginGesture) apply(s *Sandbox) (Result, error) {
	shape, ok := s.targetShape(c.ShapeID)
	if !ok || !finite(c.A.X, c.A.Y, c.B.X, c.B.Y) {
		return noEffect, nil
	}
	s.checkpoint(s.bridge.Layout())
	s.gesture = &gestureState{
		shapeID:       shape.ID,
		startAngle:    touchAngle(c.A, c.B),
		startRotation: shape.Rotation,
	}
	s.selected = shape.ID
	return Result{Applied: true, ShapeID: shape.ID}, nil
}

// Gesture updates the live contact points of a rotation gesture.
type Gesture struct {
	A Vec2 `json:"a" msgpack:"a"`
	B Vec2 `json:"b" msgpack:"b"`
}

func (c Gesture) apply(s *Sandbox) (Result, error) {
	g := s.gesture
	if g == nil || !finite(c.A.X, c.A.Y, c.B.X, c.B.Y) {
		return noEffect, nil
	}
	rotation := g.startRotation + GestureFactor*(touchAngle(c.A, c.B)-g.startAngle)
	shape, crushed, ok := s.bridge.SetRotation(g.shapeID, rotation)
	if !ok {
		s.gesture = nil
		return noEffect, nil
	}
	return Result{Applied: true, ShapeID: shape.ID, Crushed: len(crushed)}, nil
}

type EndGesture struct{}

func (EndGesture) apply(s *Sandbox) (Result, error) {
	if s.gesture == nil {
		return noEffect, nil
	}
	id := s.gesture.shapeID
	s.gesture = nil
	return Result{Applied: true, ShapeID: id}, nil
}

// DeleteAt removes the topmost shape under (X, Y).
type DeleteAt struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (c DeleteAt) apply(s *Sandbox) (Result, error) {
	shape, ok := s.bridge.ShapeAt(c.X, c.Y)
	if !ok {
		return noEffect, nil
	}
	return s.deleteShape(shape.ID)
}

// DeleteShape removes a shape by id.
type DeleteShape struct {
	ID string `json:"id" msgpack:"id"`
}

func (c DeleteShape) apply(s *Sandbox) (Result, error) {
	return s.deleteShape(c.ID)
}

func (s *Sandbox) deleteShape(id string) (Result, error) {
	if _, ok := s.bridge.Shape(id); !ok {
		return noEffect, nil
	}
	s.checkpoint(s.bridge.Layout())
	shape, _ := s.bridge.Delete(id)
	if s.selected == id {
		s.selected = ""
	}
	if s.drag != nil && s.drag.shapeID == id {
		s.drag = nil
	}
	if s.gesture != nil && s.gesture.shapeID == id {
		s.gesture = nil
	}
	s.emit(Event{Type: EventShapeDeleted, ShapeID: shape.ID, Kind: shape.Kind})
	return Result{Applied: true, ShapeID: shape.ID}, nil
}

// Select marks a shape as the target of rotate commands. An empty ID clears
// the selection.
type Select struct {
	ID string `json:"id" msgpack:"id"`
}

func (c Select) apply(s *Sandbox) (Result, error) {
	if c.ID == "" {
		changed := s.selected != ""
		s.selected = ""
		return Result{Applied: changed}, nil
	}
	if _, ok := s.bridge.Shape(c.ID); !ok {
		return noEffect, nil
	}
	s.selected = c.ID
	return Result{Applied: true, ShapeID: c.ID}, nil
}

type Pause struct{}

func (Pause) apply(s *Sandbox) (Result, error) {
	return Result{Applied: s.pause()}, nil
}

type Resume struct{}

func (Resume) apply(s *Sandbox) (Result, error) {
	return Result{Applied: s.resume()}, nil
}

type TogglePause struct{}

func (TogglePause) apply(s *Sandbox) (Result, error) {
	if s.paused {
		s.resume()
	} else {
		s.pause()
	}
	return Result{Applied: true}, nil
}

type Undo struct{}

func (Undo) apply(s *Sandbox) (Result, error) {
	return Result{Applied: s.undo()}, nil
}

type Redo struct{}

func (Redo) apply(s *Sandbox) (Result, error) {
	return Result{Applied: s.redo()}, nil
}

// SetSpawnRate changes the spawn interval in seconds, clamped to the allowed
// range.
type SetSpawnRate struct {
	Seconds float64 `json:"seconds" msgpack:"seconds"`
}

func (c SetSpawnRate) apply(s *Sandbox) (Result, error) {
	if !finite(c.Seconds) {
		return noEffect, nil
	}
	s.spawner.SetInterval(c.Seconds)
	return Result{Applied: true}, nil
}

// SetMode switches the bottom boundary. The world is rebuilt and every ball is
// dropped; shapes survive.
type SetMode struct {
	Mode Mode `json:"mode" msgpack:"mode"`
}

func (c SetMode) apply(s *Sandbox) (Result, error) {
	if !c.Mode.Valid() {
		return noEffect, fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Mode == s.mode {
		return noEffect, nil
	}
	s.rebuild(c.Mode)
	return Result{Applied: true}, nil
}

// SetTheme changes the palette used for future balls.
type SetTheme struct {
	Theme Theme `json:"theme" msgpack:"theme"`
}

func (c SetTheme) apply(s *Sandbox) (Result, error) {
	if !c.Theme.Valid() {
		return noEffect, fmt.Errorf("%w: %q", ErrInvalidTheme, c.Theme)
	}
	if c.Theme == s.theme {
		return noEffect, nil
	}
	s.theme = c.Theme
	return Result{Applied: true}, nil
}

type ClearBalls struct{}

func (ClearBalls) apply(s *Sandbox) (Result, error) {
	return Result{Applied: s.clearBalls() > 0}, nil
}

// Reset clears balls, shapes, history and session counters.
type Reset struct{}

func (Reset) apply(s *Sandbox) (Result, error) {
	s.reset()
	return Result{Applied: true}, nil
}

// Load replaces the sandbox state with a save file, rebuilding every body.
type Load struct {
	Save *SaveFile `json:"save" msgpack:"save"`
}

func (c Load) apply(s *Sandbox) (Result, error) {
	if c.Save == nil {
		return noEffect, fmt.Errorf("%w: empty", ErrInvalidSave)
	}
	f := *c.Save
	f.Shapes = c.Save.Shapes.Clone()
	if err := f.Validate(); err != nil {
		return noEffect, err
	}
	s.load(&f)
	return Result{Applied: true}, nil
}

type Save struct{}

func (Save) apply(s *Sandbox) (Result, error) {
	return Result{Applied: true, Save: s.SaveFile()}, nil
}

type Snapshot struct{}

func (Snapshot) apply(s *Sandbox) (Result, error) {
	f := s.Frame()
	return Result{Applied: true, Frame: &f}, nil
}

var commandTypes = map[string]func() Command{
	"place":          func() Command { return &Place{} },
	"begin_drag":     func() Command { return &BeginDrag{} },
	"drag":           func() Command { return &Drag{} },
	"end_drag":       func() Command { return &EndDrag{} },
	"rotate_by":      func() Command { return &RotateBy{} },
	"wheel":          func() Command { return &Wheel{} },
	"begin_gesture":  func() Command { return &BeginGesture{} },
	"gesture":        func() Command { return &Gesture{} },
	"end_gesture":    func() Command { return &EndGesture{} },
	"delete_at":      func() Command { return &DeleteAt{} },
	"delete_shape":   func() Command { return &DeleteShape{} },
	"select":         func() Command { return &Select{} },
	"pause":          func() Command { return &Pause{} },
	"resume":         func() Command { return &Resume{} },
	"toggle_pause":   func() Command { return &TogglePause{} },
	"undo":           func() Command { return &Undo{} },
	"redo":           func() Command { return &Redo{} },
	"set_spawn_rate": func() Command { return &SetSpawnRate{Seconds: DefaultSpawnRate} },
	"set_mode":       func() Command { return &SetMode{} },
	"set_theme":      func() Command { return &SetTheme{} },
	"clear_balls":    func() Command { return &ClearBalls{} },
	"reset":          func() Command { return &Reset{} },
	"load":           func() Command { return &Load{} },
	"save":           func() Command { return &Save{} },
	"snapshot":       func() Command { return &Snapshot{} },
}

// NewCommand returns an empty command for a wire name, ready to be decoded
// into.
func NewCommand(name string) (Command, error) {
	f, ok := commandTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return f(), nil
}
