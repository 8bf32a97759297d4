package game

import (
	"math"
	"sync"

	"github.com/jakecoffman/cp"
)

// Handle is an opaque reference to a body in a World. Handles are never reused
// within one World.
type Handle uint64

// RemovalReason explains why the world retired a ball on its own.
type RemovalReason string

const (
	RemovedExitedBottom RemovalReason = "exited-bottom"
	RemovedCrushed      RemovalReason = "crushed"
	RemovedCleared      RemovalReason = "cleared"
)

// Body labels used for collision routing and diagnostics.
const (
	LabelBall       = "ball"
	LabelShape      = "shape"
	LabelWallTop    = "wall-top"
	LabelWallLeft   = "wall-left"
	LabelWallRight  = "wall-right"
	LabelWallBottom = "wall-bottom"
)

const (
	collisionBall cp.CollisionType = iota + 1
	collisionShape
	collisionWall
	collisionFloor
)

const ballMass = 1.0

// cp multiplies the elasticities of both shapes in a pair, so each surface
// carries the square root and every pair resolves at BounceCoefficient.
var surfaceElasticity = math.Sqrt(BounceCoefficient)

// cp numbers bodies from a package level counter.
var bodyMu sync.Mutex

func newDynamicBody(mass, moment float64) *cp.Body {
	bodyMu.Lock()
	defer bodyMu.Unlock()
	return cp.NewBody(mass, moment)
}

func newStaticBody() *cp.Body {
	bodyMu.Lock()
	defer bodyMu.Unlock()
	return cp.NewStaticBody()
}

type worldBody struct {
	body  *cp.Body
	shape *cp.Shape
	label string
}

// World owns the rigid-body simulation: four boundary walls, static shape
// bodies and dynamic ball bodies. It is not safe for concurrent use; a
// Session goroutine is its only caller.
type World struct {
	space  *cp.Space
	width  float64
	height float64
	mode   Mode

	last   Handle
	balls  map[Handle]*worldBody
	shapes map[Handle]*worldBody
	walls  map[string]*worldBody

	onRemoved func(Handle, RemovalReason)
}

// NewWorld builds an empty world with its boundaries. In creative mode the
// bottom wall is a sensor that retires balls; otherwise it is solid.
func NewWorld(width, height float64, mode Mode) *World {
	space := cp.NewSpace()
	space.Iterations = SolverIterations
	space.SetGravity(cp.Vector{X: 0, Y: Gravity})

	w := &World{
		space:  space,
		width:  width,
		height: height,
		mode:   mode,
		balls:  make(map[Handle]*worldBody),
		shapes: make(map[Handle]*worldBody),
		walls:  make(map[string]*worldBody),
	}
	w.createBoundaries()

	floor := space.NewCollisionHandler(collisionBall, collisionFloor)
	floor.BeginFunc = w.ballTouchedFloor

	return w
}

func (w *World) createBoundaries() {
	t := WallThickness
	w.addWall(LabelWallTop, w.width/2, -t/2, w.width+2*t, t, collisionWall, false)
	w.addWall(LabelWallLeft, -t/2, w.height/2, t, w.height+2*t, collisionWall, false)
	w.addWall(LabelWallRight, w.width+t/2, w.height/2, t, w.height+2*t, collisionWall, false)
	w.addWall(LabelWallBottom, w.width/2, w.height+t/2, w.width+2*t, t, collisionFloor, w.mode == ModeCreative)
}

func (w *World) addWall(label string, x, y, width, height float64, ct cp.CollisionType, sensor bool) {
	body := newStaticBody()
	body.SetPosition(cp.Vector{X: x, Y: y})
	w.space.AddBody(body)

	shape := cp.NewBox(body, width, height, 0)
	configureShape(shape, ct)
	shape.SetSensor(sensor)
	w.space.AddShape(shape)

	w.walls[label] = &worldBody{body: body, shape: shape, label: label}
}

func configureShape(shape *cp.Shape, ct cp.CollisionType) {
	shape.SetElasticity(surfaceElasticity)
	shape.SetFriction(0)
	shape.SetCollisionType(ct)
}

func (w *World) nextHandle() Handle {
	w.last++
	return w.last
}

// Mode reports how the bottom boundary behaves.
func (w *World) Mode() Mode {
	return w.mode
}

// OnBallRemoved registers the callback fired once for every ball the world
// retires by itself (bottom exit or crush).
func (w *World) OnBallRemoved(fn func(Handle, RemovalReason)) {
	w.onRemoved = fn
}

// Step advances the simulation by dt seconds using sub-steps no longer than
// MaxSubStep.
func (w *World) Step(dt float64) {
	if dt <= 0 || !finite(dt) {
		return
	}
	n := int(math.Ceil(dt/MaxSubStep - 1e-9))
	if n < 1 {
		n = 1
	}
	sub := dt / float64(n)
	for i := 0; i < n; i++ {
		w.space.Step(sub)
	}
	w.sweepEscaped()
}

func (w *World) ballTouchedFloor(arb *cp.Arbiter, space *cp.Space, _ interface{}) bool {
	if w.mode != ModeCreative {
		return true
	}
	a, b := arb.Shapes()
	for _, s := range []*cp.Shape{a, b} {
		h, ok := s.UserData.(Handle)
		if !ok {
			continue
		}
		if _, live := w.balls[h]; !live {
			continue
		}
		space.AddPostStepCallback(func(*cp.Space, interface{}, interface{}) {
			w.retireBall(h, RemovedExitedBottom)
		}, s, nil)
	}
	return true
}

// sweepEscaped retires balls that left the field without touching the floor
// sensor, which can only happen after a huge time step.
func (w *World) sweepEscaped() {
	if w.mode != ModeCreative {
		return
	}
	limit := w.height + 2*WallThickness
	var gone []Handle
	for h, b := range w.balls {
		if b.body.Position().Y > limit {
			gone = append(gone, h)
		}
	}
	for _, h := range gone {
		w.retireBall(h, RemovedExitedBottom)
	}
}

// AddShapeBody inserts a static body for s: a box for squares, a capsule of the
// fixed line thickness for lines.
func (w *World) AddShapeBody(s Shape) Handle {
	body := newStaticBody()
	body.SetPosition(cp.Vector{X: s.X, Y: s.Y})
	body.SetAngle(s.Rotation)
	w.space.AddBody(body)

	width, height := s.Kind.Size()
	var shape *cp.Shape
	if s.Kind.IsLine() {
		half := width/2 - height/2
		shape = cp.NewSegment(body, cp.Vector{X: -half}, cp.Vector{X: half}, height/2)
	} else {
		shape = cp.NewBox(body, width, height, 0)
	}
	configureShape(shape, collisionShape)

	h := w.nextHandle()
	shape.UserData = h
	w.space.AddShape(shape)
	w.shapes[h] = &worldBody{body: body, shape: shape, label: LabelShape}
	return h
}

// RemoveShapeBody deletes a shape body. Unknown handles are ignored.
func (w *World) RemoveShapeBody(h Handle) {
	b, ok := w.shapes[h]
	if !ok {
		return
	}
	delete(w.shapes, h)
	w.detach(b)
}

// SetStaticBodyTransform moves and turns a shape body in one step. The shape is
// taken out of the static index and reinserted so the broad phase sees the new
// bounds immediately. Balls overlapping the moved shape are retired through the
// removal callback and returned.
func (w *World) SetStaticBodyTransform(h Handle, x, y, rotation float64) []Handle {
	b, ok := w.shapes[h]
	if !ok {
		return nil
	}

	w.space.RemoveShape(b.shape)
	b.body.SetPosition(cp.Vector{X: x, Y: y})
	b.body.SetAngle(rotation)
	w.space.AddShape(b.shape)

	return w.evictOverlapping(b.shape)
}

// CrushOverlapping retires every ball overlapping the shape body h and
// returns them.
func (w *World) CrushOverlapping(h Handle) []Handle {
	b, ok := w.shapes[h]
	if !ok {
		return nil
	}
	return w.evictOverlapping(b.shape)
}

func (w *World) evictOverlapping(shape *cp.Shape) []Handle {
	var hits []Handle
	w.space.ShapeQuery(shape, func(other *cp.Shape, points *cp.ContactPointSet) {
		h, ok := other.UserData.(Handle)
		if !ok || points.Count == 0 {
			return
		}
		if _, isBall := w.balls[h]; isBall {
			hits = append(hits, h)
		}
	})

	crushed := hits[:0]
	for _, h := range hits {
		if w.retireBall(h, RemovedCrushed) {
			crushed = append(crushed, h)
		}
	}
	return crushed
}

// AddBallBody drops a dynamic circle at (x, y).
func (w *World) AddBallBody(x, y, radius float64) Handle {
	body := newDynamicBody(ballMass, cp.MomentForCircle(ballMass, 0, radius, cp.Vector{}))
	body.SetPosition(cp.Vector{X: x, Y: y})
	w.space.AddBody(body)

	shape := cp.NewCircle(body, radius, cp.Vector{})
	configureShape(shape, collisionBall)

	h := w.nextHandle()
	shape.UserData = h
	w.space.AddShape(shape)
	w.balls[h] = &worldBody{body: body, shape: shape, label: LabelBall}
	return h
}

// RemoveBallBody deletes a ball without firing the removal callback. Unknown
// handles are ignored.
func (w *World) RemoveBallBody(h Handle) {
	b, ok := w.balls[h]
	if !ok {
		return
	}
	delete(w.balls, h)
	w.detach(b)
}

// retireBall removes a ball and reports it. It returns false when the ball was
// already gone, so a ball is never reported twice.
func (w *World) retireBall(h Handle, reason RemovalReason) bool {
	b, ok := w.balls[h]
	if !ok {
		return false
	}
	delete(w.balls, h)
	w.detach(b)
	if w.onRemoved != nil {
		w.onRemoved(h, reason)
	}
	return true
}

func (w *World) detach(b *worldBody) {
	if w.space.ContainsShape(b.shape) {
		w.space.RemoveShape(b.shape)
	}
	if w.space.ContainsBody(b.body) {
		w.space.RemoveBody(b.body)
	}
}

// BallPositions snapshots the centre of every live ball.
func (w *World) BallPositions() map[Handle]Vec2 {
	out := make(map[Handle]Vec2, len(w.balls))
	for h, b := range w.balls {
		p := b.body.Position()
		out[h] = Vec2{X: p.X, Y: p.Y}
	}
	return out
}

// ShapePositions snapshots the pose of every shape body.
func (w *World) ShapePositions() map[Handle]Pose {
	out := make(map[Handle]Pose, len(w.shapes))
	for h, b := range w.shapes {
		p := b.body.Position()
		out[h] = Pose{X: p.X, Y: p.Y, Angle: b.body.Angle()}
	}
	return out
}

// BallVelocity returns the velocity of a live ball.
func (w *World) BallVelocity(h Handle) (Vec2, bool) {
	b, ok := w.balls[h]
	if !ok {
		return Vec2{}, false
	}
	v := b.body.Velocity()
	return Vec2{X: v.X, Y: v.Y}, true
}

// SetBallVelocity overrides the velocity of a live ball.
func (w *World) SetBallVelocity(h Handle, v Vec2) {
	if b, ok := w.balls[h]; ok {
		b.body.SetVelocity(v.X, v.Y)
	}
}

func (w *World) BallCount() int  { return len(w.balls) }
func (w *World) ShapeCount() int { return len(w.shapes) }

// HasBall reports whether h is a live ball.
func (w *World) HasBall(h Handle) bool {
	_, ok := w.balls[h]
	return ok
}

// HasShape reports whether h is a live shape body.
func (w *World) HasShape(h Handle) bool {
	_, ok := w.shapes[h]
	return ok
}

// Label returns the routing label of a body, or "" for unknown handles.
func (w *World) Label(h Handle) string {
	if b, ok := w.balls[h]; ok {
		return b.label
	}
	if b, ok := w.shapes[h]; ok {
		return b.label
	}
	return ""
}

// IsSensor reports whether the named wall lets balls through.
func (w *World) IsSensor(label string) bool {
	b, ok := w.walls[label]
	return ok && b.shape.Sensor()
}

// ClearAllBalls removes every ball without firing callbacks.
func (w *World) ClearAllBalls() {
	for h, b := range w.balls {
		delete(w.balls, h)
		w.detach(b)
	}
}

// ClearAllShapes removes every shape body.
func (w *World) ClearAllShapes() {
	for h, b := range w.shapes {
		delete(w.shapes, h)
		w.detach(b)
	}
}

// Destroy releases every body. The world must not be used afterwards.
func (w *World) Destroy() {
	w.onRemoved = nil
	w.ClearAllBalls()
	w.ClearAllShapes()
	for label, b := range w.walls {
		delete(w.walls, label)
		w.detach(b)
	}
}
