package game

// BallView is one ball as the renderer draws it.
type BallView struct {
	ID    string  `json:"id" msgpack:"id"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Color string  `json:"color" msgpack:"color"`
}

// ShapeView is one shape as the renderer draws it.
type ShapeView struct {
	ID       string    `json:"id" msgpack:"id"`
	Kind     ShapeKind `json:"kind" msgpack:"kind"`
	X        float64   `json:"x" msgpack:"x"`
	Y        float64   `json:"y" msgpack:"y"`
	Rotation float64   `json:"rotation" msgpack:"rotation"`
	Width    float64   `json:"width" msgpack:"width"`
	Height   float64   `json:"height" msgpack:"height"`
	Color    string    `json:"color" msgpack:"color"`
}

// Frame is the read-only picture of a sandbox handed to renderers once per
// broadcast tick.
type Frame struct {
	Tick      uint64       `json:"tick" msgpack:"tick"`
	Paused    bool         `json:"paused" msgpack:"paused"`
	Mode      Mode         `json:"mode" msgpack:"mode"`
	Theme     Theme        `json:"theme" msgpack:"theme"`
	SpawnRate float64      `json:"spawn_rate" msgpack:"spawn_rate"`
	Balls     []BallView   `json:"balls" msgpack:"balls"`
	Shapes    []ShapeView  `json:"shapes" msgpack:"shapes"`
	Selected  string       `json:"selected,omitempty" msgpack:"selected,omitempty"`
	Stats     SessionStats `json:"stats" msgpack:"stats"`
	CanUndo   bool         `json:"can_undo" msgpack:"can_undo"`
	CanRedo   bool         `json:"can_redo" msgpack:"can_redo"`
}

// Frame joins the world's body positions with the ball and shape records.
// Balls come out in creation order, shapes bottom to top.
func (s *Sandbox) Frame() Frame {
	f := Frame{
		Tick:      s.tick,
		Paused:    s.paused,
		Mode:      s.mode,
		Theme:     s.theme,
		SpawnRate: s.spawner.Interval(),
		Selected:  s.selected,
		Stats:     s.stats,
		CanUndo:   s.CanUndo(),
		CanRedo:   s.CanRedo(),
	}

	positions := s.world.BallPositions()
	f.Balls = make([]BallView, 0, len(positions))
	for _, b := range s.Balls() {
		p, ok := positions[b.Handle]
		if !ok {
			continue
		}
		f.Balls = append(f.Balls, BallView{ID: b.ID, X: p.X, Y: p.Y, Color: b.Color})
	}

	poses := s.world.ShapePositions()
	f.Shapes = make([]ShapeView, 0, s.bridge.Len())
	for _, sh := range s.bridge.layout {
		h, ok := s.bridge.Handle(sh.ID)
		if !ok {
			continue
		}
		pose, ok := poses[h]
		if !ok {
			continue
		}
		w, ht := sh.Kind.Size()
		f.Shapes = append(f.Shapes, ShapeView{
			ID:       sh.ID,
			Kind:     sh.Kind,
			X:        pose.X,
			Y:        pose.Y,
			Rotation: pose.Angle,
			Width:    w,
			Height:   ht,
			Color:    ShapeColor(sh.Kind, s.theme),
		})
	}
	return f
}
