package tui

import (
	"math"
	"strings"

	"github.com/msalah0e/conceptmap/internal/scene"
)

// Terminal cells are mapped to this many frame pixels. Cells are roughly
// twice as tall as they are wide.
const (
	CellWidth  = 8
	CellHeight = 16
)

const labelWidth = 18

type cell struct {
	ch    rune
	color string
	bold  bool
}

// Canvas is a grid of styled terminal cells.
type Canvas struct {
	cols, rows int
	cells      []cell
}

// NewCanvas creates a blank canvas.
func NewCanvas(cols, rows int) *Canvas {
	cols, rows = max(cols, 0), max(rows, 0)
	c := &Canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for i := range c.cells {
		c.cells[i].ch = ' '
	}
	return c
}

// CellOf maps a frame pixel to the cell containing it.
func CellOf(x, y float64) (col, row int) {
	return int(math.Floor(x / CellWidth)), int(math.Floor(y / CellHeight))
}

// CellCenter maps a cell to the frame pixel at its center.
func CellCenter(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * CellWidth, (float64(row) + 0.5) * CellHeight
}

func (c *Canvas) set(col, row int, ch rune, color string, bold bool) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] = cell{ch: ch, color: color, bold: bold}
}

// At returns the rune drawn at a cell.
func (c *Canvas) At(col, row int) rune {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return 0
	}
	return c.cells[row*c.cols+col].ch
}

// Line draws a straight run of cells between two cells.
func (c *Canvas) Line(x0, y0, x1, y1 int, color string, bold bool) {
	ch := lineRune(x1-x0, y1-y0)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, ch, color, bold)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func lineRune(dx, dy int) rune {
	if dx == 0 && dy == 0 {
		return '·'
	}
	// Slope in screen space, correcting for the cell aspect ratio.
	slope := math.Abs(float64(dy*CellHeight)) / math.Max(math.Abs(float64(dx*CellWidth)), 1e-9)
	switch {
	case slope < 0.4:
		return '─'
	case slope > 2.5:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// Text writes s starting at a cell, clipped to the canvas.
func (c *Canvas) Text(col, row int, s, color string, bold bool) {
	for _, r := range s {
		c.set(col, row, r, color, bold)
		col++
	}
}

// Draw rasterises a frame: edges first, then labels, then node glyphs on top.
func (c *Canvas) Draw(f scene.Frame, muted string) {
	highlight := f.Highlight
	if highlight == "" {
		highlight = "#FFFFFF"
	}
	for _, e := range f.Edges {
		x0, y0 := CellOf(e.X1, e.Y1)
		x1, y1 := CellOf(e.X2, e.Y2)
		color := muted
		if e.Highlighted {
			color = e.Color
		}
		c.Line(x0, y0, x1, y1, color, e.Highlighted)
	}
	for _, n := range f.Nodes {
		col, row := CellOf(n.X, n.Y)
		bold := n.Hovered || n.Selected
		color := "#BBBBBB"
		if bold {
			color = highlight
		}
		c.Text(col+2, row, truncate(n.Label, labelWidth), color, bold)
	}
	for _, n := range f.Nodes {
		col, row := CellOf(n.X, n.Y)
		c.set(col, row, glyph(n), n.Color, n.Hovered || n.Selected)
	}
}

func glyph(n scene.NodeSprite) rune {
	switch {
	case n.Selected:
		return '◉'
	case n.Hovered:
		return '◎'
	}
	return '●'
}

// Plain returns the canvas without styling, one line per row.
func (c *Canvas) Plain() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			b.WriteRune(c.cells[row*c.cols+col].ch)
		}
	}
	return b.String()
}

// String renders the canvas with each run of equally styled cells wrapped
// in one lipgloss style.
func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		line := c.cells[row*c.cols : (row+1)*c.cols]
		for start := 0; start < len(line); {
			end := start + 1
			for end < len(line) && line[end].color == line[start].color && line[end].bold == line[start].bold {
				end++
			}
			var run strings.Builder
			for _, cl := range line[start:end] {
				run.WriteRune(cl.ch)
			}
			if line[start].color == "" && !line[start].bold {
				b.WriteString(run.String())
			} else {
				b.WriteString(Swatch(line[start].color, line[start].bold).Render(run.String()))
			}
			start = end
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
