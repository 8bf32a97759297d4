package game

import (
	"math/rand"
	"sort"
	"time"
)

// Ball is the presentation record of a live ball body.
type Ball struct {
	ID     string `json:"id" msgpack:"id"`
	Handle Handle `json:"handle" msgpack:"handle"`
	Color  string `json:"color" msgpack:"color"`
}

// Options configures a new Sandbox.
type Options struct {
	Mode      Mode
	Theme     Theme
	SpawnRate float64
	Events    EventSink
	SessionID string
	PlayerID  int

	// Seed drives tilt and colour choices. Zero seeds from the clock.
	Seed int64
	// StartRunning skips the initial pause.
	StartRunning bool
}

type dragState struct {
	shapeID string
	offset  Vec2
	before  Layout
	moved   bool
}

type gestureState struct {
	shapeID       string
	startAngle    float64
	startRotation float64
}

// Sandbox is the single-owner state of one ball-drop session: the world, the
// shape bridge, the spawn timer and the undo history. It is not safe for
// concurrent use; Session serialises access to it.
type Sandbox struct {
	world   *World
	bridge  *Bridge
	spawner *Spawner
	history *History
	rng     *rand.Rand
	events  EventSink
	now     func() time.Time

	sessionID string
	playerID  int

	balls    map[Handle]*Ball
	mode     Mode
	theme    Theme
	paused   bool
	selected string
	drag     *dragState
	gesture  *gestureState
	// dirty is set when the live layout differs from the snapshot under the
	// history cursor.
	dirty bool
	stats SessionStats
	tick  uint64
}

// NewSandbox builds a sandbox. Invalid options fall back to creative mode, the
// light theme and the default spawn rate.
func NewSandbox(opts Options) *Sandbox {
	if !opts.Mode.Valid() {
		opts.Mode = ModeCreative
	}
	if !opts.Theme.Valid() {
		opts.Theme = ThemeLight
	}
	if opts.SpawnRate == 0 {
		opts.SpawnRate = DefaultSpawnRate
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	var sink EventSink = discardSink{}
	if opts.Events != nil {
		sink = opts.Events
	}

	s := &Sandbox{
		spawner:   NewSpawner(opts.SpawnRate),
		history:   NewHistory(HistoryCapacity),
		rng:       rand.New(rand.NewSource(opts.Seed)),
		events:    sink,
		now:       time.Now,
		sessionID: opts.SessionID,
		playerID:  opts.PlayerID,
		balls:     make(map[Handle]*Ball),
		mode:      opts.Mode,
		theme:     opts.Theme,
		paused:    true,
	}
	s.world = s.newWorld(opts.Mode)
	s.bridge = NewBridge(s.world, s.rng, func() string { return newID("shape") })
	if opts.StartRunning {
		s.resume()
	}
	return s
}

func (s *Sandbox) newWorld(mode Mode) *World {
	w := NewWorld(FieldWidth, FieldHeight, mode)
	w.OnBallRemoved(s.ballRemoved)
	return w
}

// Advance runs the spawn timer and steps the world by dt seconds. It does
// nothing while paused.
func (s *Sandbox) Advance(dt float64) {
	if s.paused || dt <= 0 || !finite(dt) {
		return
	}
	for n := s.spawner.Advance(dt); n > 0; n-- {
		s.spawnBall()
	}
	s.world.Step(dt)
	s.tick++
}

// AddPlayTime credits unpaused wall time to the session and reports it.
func (s *Sandbox) AddPlayTime(d time.Duration) {
	if s.paused || d <= 0 {
		return
	}
	ms := d.Milliseconds()
	s.stats.PlayTimeMs += ms
	s.emit(Event{Type: EventPlayTime, PlayMs: ms})
}

// Apply runs one command against the sandbox.
func (s *Sandbox) Apply(cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, ErrUnknownCommand
	}
	return cmd.apply(s)
}

func (s *Sandbox) spawnBall() bool {
	if len(s.balls) >= MaxBalls {
		return false
	}
	h := s.world.AddBallBody(SpawnXRatio*FieldWidth, BallRadius, BallRadius)
	b := &Ball{ID: newID("ball"), Handle: h, Color: RandomBallColor(s.rng, s.theme)}
	s.balls[h] = b
	s.emit(Event{Type: EventBallCreated, BallID: b.ID, Handle: h, Color: b.Color})
	return true
}

func (s *Sandbox) ballRemoved(h Handle, reason RemovalReason) {
	b, ok := s.balls[h]
	if !ok {
		return
	}
	delete(s.balls, h)
	s.emit(Event{Type: EventBallRemoved, BallID: b.ID, Handle: h, Reason: reason})
	if reason == RemovedExitedBottom {
		s.stats.BallsDropped++
		s.emit(Event{Type: EventBallDropped, BallID: b.ID, Handle: h})
	}
}

func (s *Sandbox) clearBalls() int {
	handles := make([]Handle, 0, len(s.balls))
	for h := range s.balls {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	s.world.ClearAllBalls()
	for _, h := range handles {
		b := s.balls[h]
		delete(s.balls, h)
		s.emit(Event{Type: EventBallRemoved, BallID: b.ID, Handle: h, Reason: RemovedCleared})
	}
	return len(handles)
}

func (s *Sandbox) emit(e Event) {
	e.SessionID = s.sessionID
	e.PlayerID = s.playerID
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.events.HandleEvent(e)
}

func (s *Sandbox) pause() bool {
	if s.paused {
		return false
	}
	s.paused = true
	s.spawner.Stop()
	return true
}

func (s *Sandbox) resume() bool {
	if !s.paused {
		return false
	}
	s.paused = false
	s.spawner.Start()
	return true
}

// checkpoint records the layout as it was before a mutation. When the live
// layout already matches the snapshot under the cursor only the redo branch
// is discarded, so undo never lands on a duplicate.
func (s *Sandbox) checkpoint(before Layout) {
	if s.dirty || s.history.Len() == 0 {
		s.history.Push(before)
	} else {
		s.history.DiscardRedo()
	}
	s.dirty = true
}

func (s *Sandbox) undo() bool {
	if s.dirty {
		s.history.Push(s.bridge.Layout())
		s.dirty = false
	}
	l, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restore(l)
	return true
}

func (s *Sandbox) redo() bool {
	if s.dirty {
		return false
	}
	l, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restore(l)
	return true
}

func (s *Sandbox) restore(l Layout) {
	s.drag = nil
	s.gesture = nil
	s.bridge.Replace(l)
	if _, ok := s.bridge.Shape(s.selected); !ok {
		s.selected = ""
	}
}

// rebuild swaps in a fresh world for mode, keeping the layout and dropping
// every ball.
func (s *Sandbox) rebuild(mode Mode) {
	s.clearBalls()
	old := s.world
	s.world = s.newWorld(mode)
	s.bridge.Rebind(s.world)
	old.Destroy()
	s.mode = mode
	s.drag = nil
	s.gesture = nil
}

func (s *Sandbox) reset() {
	s.clearBalls()
	s.bridge.Replace(nil)
	s.history.Clear()
	s.dirty = false
	s.selected = ""
	s.drag = nil
	s.gesture = nil
	s.stats = SessionStats{}
	s.emit(Event{Type: EventSessionReset})
}

func (s *Sandbox) load(f *SaveFile) {
	s.clearBalls()
	if f.Mode != s.mode {
		old := s.world
		s.world = s.newWorld(f.Mode)
		s.bridge.world = s.world
		old.Destroy()
		s.mode = f.Mode
	}
	s.bridge.Replace(f.Shapes)
	s.history.Clear()
	s.dirty = false
	s.selected = ""
	s.drag = nil
	s.gesture = nil
	s.spawner.SetInterval(f.SpawnRate)
	s.stats = f.SessionStats
	if f.IsPaused {
		s.pause()
	} else {
		s.resume()
	}
}

// SaveFile snapshots the sandbox in the downloadable format.
func (s *Sandbox) SaveFile() *SaveFile {
	return &SaveFile{
		Version:      SaveVersion,
		Shapes:       s.bridge.Layout(),
		SpawnRate:    s.spawner.Interval(),
		Mode:         s.mode,
		SessionStats: s.stats,
		IsPaused:     s.paused,
		SavedAt:      s.now().UTC(),
	}
}

// targetShape resolves the shape a rotate or drag command addresses: an
// explicit id, else the selection.
func (s *Sandbox) targetShape(id string) (Shape, bool) {
	if id == "" {
		id = s.selected
	}
	if id == "" {
		return Shape{}, false
	}
	return s.bridge.Shape(id)
}

// Balls lists live balls ordered by creation.
func (s *Sandbox) Balls() []Ball {
	out := make([]Ball, 0, len(s.balls))
	for _, b := range s.balls {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (s *Sandbox) Layout() Layout      { return s.bridge.Layout() }
func (s *Sandbox) Stats() SessionStats { return s.stats }
func (s *Sandbox) Paused() bool        { return s.paused }
func (s *Sandbox) Mode() Mode          { return s.mode }
func (s *Sandbox) Theme() Theme        { return s.theme }
func (s *Sandbox) SpawnRate() float64  { return s.spawner.Interval() }
func (s *Sandbox) Selected() string    { return s.selected }
func (s *Sandbox) BallCount() int      { return len(s.balls) }
func (s *Sandbox) CanUndo() bool       { return s.dirty || s.history.CanUndo() }
func (s *Sandbox) CanRedo() bool       { return !s.dirty && s.history.CanRedo() }
func (s *Sandbox) Tick() uint64        { return s.tick }
func (s *Sandbox) World() *World       { return s.world }

// ShapeAt returns the topmost shape under (x, y).
func (s *Sandbox) ShapeAt(x, y float64) (Shape, bool) {
	return s.bridge.ShapeAt(x, y)
}

// Close releases the world. The sandbox must not be used afterwards.
func (s *Sandbox) Close() {
	s.world.Destroy()
	s.balls = make(map[Handle]*Ball)
}
