package render

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/balldrop/internal/game"
)

// keyRotation is the turn applied by the [ and ] keys.
const keyRotation = math.Pi / 12

// spawnRateStep is the change applied by the + and - keys.
const spawnRateStep = 0.25

// Input turns terminal events into sandbox commands. It keeps only what the
// terminal cannot ask the sandbox for: the chosen tool and the mouse state.
type Input struct {
	r     *Renderer
	kinds []game.ShapeKind
	tool  int

	buttons tcell.ButtonMask
	drag    bool
}

func NewInput(r *Renderer) *Input {
	return &Input{r: r, kinds: game.ShapeKinds()}
}

// Tool is the shape kind placed by the next click on empty space.
func (in *Input) Tool() game.ShapeKind {
	return in.kinds[in.tool]
}

// Handle maps one event against the last frame shown. quit is set when the
// user asked to leave.
func (in *Input) Handle(ev tcell.Event, f game.Frame) (cmds []game.Command, quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return in.key(ev, f)
	case *tcell.EventMouse:
		return in.mouse(ev, f), false
	}
	return nil, false
}

func (in *Input) key(ev *tcell.EventKey, f game.Frame) ([]game.Command, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyCtrlZ:
		return []game.Command{game.Undo{}}, false
	case tcell.KeyCtrlY:
		return []game.Command{game.Redo{}}, false
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		if f.Selected == "" {
			return nil, false
		}
		return []game.Command{game.DeleteShape{ID: f.Selected}}, false
	case tcell.KeyEnter:
		return []game.Command{game.Place{Kind: in.Tool()}}, false
	case tcell.KeyTab:
		in.tool = (in.tool + 1) % len(in.kinds)
		return nil, false
	case tcell.KeyRune:
	default:
		return nil, false
	}

	switch r := ev.Rune(); {
	case r == 'q':
		return nil, true
	case r == ' ':
		return []game.Command{game.TogglePause{}}, false
	case r >= '1' && r <= '9':
		if i := int(r - '1'); i < len(in.kinds) {
			in.tool = i
		}
	case r == 'u':
		return []game.Command{game.Undo{}}, false
	case r == 'r':
		return []game.Command{game.Redo{}}, false
	case r == '[':
		return []game.Command{game.RotateBy{Delta: -keyRotation}}, false
	case r == ']':
		return []game.Command{game.RotateBy{Delta: keyRotation}}, false
	case r == '+' || r == '=':
		return []game.Command{game.SetSpawnRate{Seconds: f.SpawnRate + spawnRateStep}}, false
	case r == '-':
		return []game.Command{game.SetSpawnRate{Seconds: f.SpawnRate - spawnRateStep}}, false
	case r == 'c':
		return []game.Command{game.ClearBalls{}}, false
	case r == 'R':
		return []game.Command{game.Reset{}}, false
	case r == 'm':
		mode := game.ModeChallenge
		if f.Mode == game.ModeChallenge {
			mode = game.ModeCreative
		}
		return []game.Command{game.SetMode{Mode: mode}}, false
	case r == 't':
		theme := game.ThemeDark
		if f.Theme == game.ThemeDark {
			theme = game.ThemeLight
		}
		return []game.Command{game.SetTheme{Theme: theme}}, false
	}
	return nil, false
}

// mouse: left press grabs the shape under the pointer or places the current
// tool on empty space, motion with the button held drags, release drops.
// Right click deletes and the wheel rotates the selection.
func (in *Input) mouse(ev *tcell.EventMouse, f game.Frame) []game.Command {
	cx, cy := ev.Position()
	x, y := in.r.ToField(cx, cy)
	buttons := ev.Buttons()
	prev := in.buttons
	in.buttons = buttons & (tcell.Button1 | tcell.Button2 | tcell.Button3)

	switch {
	case buttons&tcell.WheelUp != 0:
		return []game.Command{game.Wheel{DeltaY: -1}}
	case buttons&tcell.WheelDown != 0:
		return []game.Command{game.Wheel{DeltaY: 1}}
	}

	if !in.r.InField(cx, cy) {
		if in.drag && buttons&tcell.Button1 == 0 {
			in.drag = false
			return []game.Command{game.EndDrag{}}
		}
		return nil
	}

	switch {
	case buttons&tcell.Button1 != 0 && prev&tcell.Button1 == 0:
		if id, ok := hitShape(f, x, y, in.r); ok {
			in.drag = true
			return []game.Command{game.BeginDrag{ShapeID: id, X: x, Y: y, AtPoint: true}}
		}
		return []game.Command{game.Place{Kind: in.Tool(), X: x, Y: y, AtPoint: true}}
	case buttons&tcell.Button1 != 0 && in.drag:
		return []game.Command{game.Drag{X: x, Y: y}}
	case buttons&tcell.Button1 == 0 && in.drag:
		in.drag = false
		return []game.Command{game.EndDrag{}}
	case buttons&tcell.Button2 != 0 && prev&tcell.Button2 == 0:
		if id, ok := hitShape(f, x, y, in.r); ok {
			return []game.Command{game.DeleteShape{ID: id}}
		}
	}
	return nil
}

// hitShape returns the topmost shape drawn in the cell under (x, y). A cell
// is much coarser than a line's thickness, so the test is padded by half a
// cell and the sandbox is addressed by id rather than by point.
func hitShape(f game.Frame, x, y float64, r *Renderer) (string, bool) {
	tx, ty := r.ToCell(x, y)
	cols, rows := r.fieldCells()
	pad := math.Max(game.FieldWidth/float64(cols), game.FieldHeight/float64(rows))

	for i := len(f.Shapes) - 1; i >= 0; i-- {
		s := f.Shapes[i]
		dx, dy := x-s.X, y-s.Y
		cos, sin := math.Cos(-s.Rotation), math.Sin(-s.Rotation)
		u := dx*cos - dy*sin
		v := dx*sin + dy*cos
		if math.Abs(u) <= s.Width/2+pad/2 && math.Abs(v) <= s.Height/2+pad/2 {
			return s.ID, true
		}
		if cx, cy := r.ToCell(s.X, s.Y); cx == tx && cy == ty {
			return s.ID, true
		}
	}
	return "", false
}
