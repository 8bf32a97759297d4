package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/balldrop/internal/game"
)

const (
	ballRune     = '●'
	shapeRune    = '█'
	selectedRune = '▓'
)

var backgrounds = map[game.Theme]tcell.Color{
	game.ThemeLight: tcell.GetColor("#F5F5F5"),
	game.ThemeDark:  tcell.GetColor("#121212"),
}

var statusColors = map[game.Theme]tcell.Color{
	game.ThemeLight: tcell.GetColor("#212121"),
	game.ThemeDark:  tcell.GetColor("#E0E0E0"),
}

// Renderer draws frames onto a terminal screen. The field is scaled to every
// row but the last, which holds the status line.
type Renderer struct {
	screen tcell.Screen
}

func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// fieldCells is the size of the field area in cells.
func (r *Renderer) fieldCells() (cols, rows int) {
	cols, rows = r.screen.Size()
	rows--
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// ToCell maps field coordinates to a screen cell.
func (r *Renderer) ToCell(x, y float64) (int, int) {
	cols, rows := r.fieldCells()
	cx := int(math.Floor(x / game.FieldWidth * float64(cols)))
	cy := int(math.Floor(y / game.FieldHeight * float64(rows)))
	return cx, cy
}

// ToField maps a screen cell to the field point at its centre.
func (r *Renderer) ToField(cx, cy int) (float64, float64) {
	cols, rows := r.fieldCells()
	x := (float64(cx) + 0.5) * game.FieldWidth / float64(cols)
	y := (float64(cy) + 0.5) * game.FieldHeight / float64(rows)
	return x, y
}

// InField reports whether a cell lies inside the field area.
func (r *Renderer) InField(cx, cy int) bool {
	cols, rows := r.fieldCells()
	return cx >= 0 && cx < cols && cy >= 0 && cy < rows
}

// Draw paints one frame and the status text, then shows the screen.
func (r *Renderer) Draw(f game.Frame, status string) {
	bg, ok := backgrounds[f.Theme]
	if !ok {
		bg = backgrounds[game.ThemeLight]
	}
	base := tcell.StyleDefault.Background(bg)

	r.screen.Clear()
	cols, rows := r.fieldCells()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r.screen.SetContent(x, y, ' ', nil, base)
		}
	}

	for _, s := range f.Shapes {
		ch := shapeRune
		if s.ID == f.Selected {
			ch = selectedRune
		}
		r.drawShape(s, ch, base.Foreground(tcell.GetColor(s.Color)))
	}

	for _, b := range f.Balls {
		cx, cy := r.ToCell(b.X, b.Y)
		if r.InField(cx, cy) {
			r.screen.SetContent(cx, cy, ballRune, nil, base.Foreground(tcell.GetColor(b.Color)))
		}
	}

	r.drawText(0, rows, status, tcell.StyleDefault.Foreground(statusColors[f.Theme]).Reverse(true))
	r.screen.Show()
}

// drawShape fills every cell covered by the rotated rectangle of s.
func (r *Renderer) drawShape(s game.ShapeView, ch rune, style tcell.Style) {
	cols, rows := r.fieldCells()
	step := math.Min(game.FieldWidth/float64(cols), game.FieldHeight/float64(rows)) / 2
	cos, sin := math.Cos(s.Rotation), math.Sin(s.Rotation)

	nu := int(math.Max(1, math.Ceil(s.Width/step)))
	nv := int(math.Max(1, math.Ceil(s.Height/step)))
	for i := 0; i <= nu; i++ {
		u := -s.Width/2 + s.Width*float64(i)/float64(nu)
		for j := 0; j <= nv; j++ {
			v := -s.Height/2 + s.Height*float64(j)/float64(nv)
			x := s.X + u*cos - v*sin
			y := s.Y + u*sin + v*cos
			if cx, cy := r.ToCell(x, y); r.InField(cx, cy) {
				r.screen.SetContent(cx, cy, ch, nil, style)
			}
		}
	}
}

func (r *Renderer) drawText(x, y int, text string, style tcell.Style) {
	cols, _ := r.screen.Size()
	i := x
	for _, c := range text {
		if i >= cols {
			return
		}
		r.screen.SetContent(i, y, c, nil, style)
		i++
	}
	for ; i < cols; i++ {
		r.screen.SetContent(i, y, ' ', nil, style)
	}
}

// StatusLine summarises a frame for the bottom row.
func StatusLine(f game.Frame, tool game.ShapeKind) string {
	state := "running"
	if f.Paused {
		state = "paused"
	}
	return fmt.Sprintf(" %s | %s | spawn %.1fs | balls %d | dropped %d | placed %d | tool %s ",
		state, f.Mode, f.SpawnRate, len(f.Balls), f.Stats.BallsDropped, f.Stats.ShapesPlaced, tool)
}
