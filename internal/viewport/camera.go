package viewport

import (
	"math"

	"github.com/msalah0e/conceptmap/internal/graph"
)

// Config holds the zoom limits of a camera.
type Config struct {
	ZoomStep float64 `toml:"zoom_step" env:"ZOOM_STEP" validate:"gt=1"`
	MinZoom  float64 `toml:"min_zoom" env:"MIN_ZOOM" validate:"gt=0"`
	MaxZoom  float64 `toml:"max_zoom" env:"MAX_ZOOM" validate:"gtfield=MinZoom"`
}

// DefaultConfig returns the standard zoom step and range.
func DefaultConfig() Config {
	return Config{ZoomStep: 1.2, MinZoom: 0.1, MaxZoom: 10}
}

// Camera maps model space to screen space. The world origin sits at the
// centre of the viewport, then rotation, zoom and pan are applied.
type Camera struct {
	PanX     float64 `json:"panX"`
	PanY     float64 `json:"panY"`
	Zoom     float64 `json:"zoom"`
	Rotation float64 `json:"rotation"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`

	cfg Config
}

// New returns a camera with the identity transform for a viewport of the given size.
func New(cfg Config, width, height float64) *Camera {
	return &Camera{Zoom: 1, Width: width, Height: height, cfg: cfg}
}

// WorldToScreen maps a model-space point to screen space.
func (c *Camera) WorldToScreen(p graph.Point) graph.Point {
	x, y := p.X, p.Y
	if c.Rotation != 0 {
		sin, cos := math.Sincos(c.Rotation)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	return graph.Point{
		X: x*c.Zoom + c.PanX + c.Width/2,
		Y: y*c.Zoom + c.PanY + c.Height/2,
	}
}

// ScreenToWorld maps a screen point back to model space.
func (c *Camera) ScreenToWorld(p graph.Point) graph.Point {
	x := (p.X - c.Width/2 - c.PanX) / c.Zoom
	y := (p.Y - c.Height/2 - c.PanY) / c.Zoom
	if c.Rotation != 0 {
		sin, cos := math.Sincos(-c.Rotation)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	return graph.Point{X: x, Y: y}
}

// ZoomIn multiplies the zoom by the configured step.
func (c *Camera) ZoomIn() { c.setZoom(c.Zoom * c.cfg.ZoomStep) }

// ZoomOut divides the zoom by the configured step.
func (c *Camera) ZoomOut() { c.setZoom(c.Zoom / c.cfg.ZoomStep) }

// ZoomAt scales the zoom by factor while keeping the world point under the
// given screen position fixed, as scroll and pinch gestures expect.
func (c *Camera) ZoomAt(screen graph.Point, factor float64) {
	if factor <= 0 {
		return
	}
	anchor := c.ScreenToWorld(screen)
	c.setZoom(c.Zoom * factor)
	moved := c.WorldToScreen(anchor)
	c.PanX += screen.X - moved.X
	c.PanY += screen.Y - moved.Y
}

// Pan moves the view by a screen-space offset.
func (c *Camera) Pan(dx, dy float64) {
	c.PanX += dx
	c.PanY += dy
}

// Reset restores zero pan and unit zoom.
func (c *Camera) Reset() {
	c.PanX, c.PanY = 0, 0
	c.Zoom = 1
	c.Rotation = 0
}

// Resize updates the viewport size. Only the centre anchor moves; zoom and
// pan are left alone.
func (c *Camera) Resize(width, height float64) {
	c.Width, c.Height = width, height
}

// Focus pans so that p lands on the centre of the viewport.
func (c *Camera) Focus(p graph.Point) {
	c.PanX, c.PanY = 0, 0
	s := c.WorldToScreen(p)
	c.PanX = c.Width/2 - s.X
	c.PanY = c.Height/2 - s.Y
}

// Fit chooses zoom and pan so the box [min,max] fills the viewport minus padding.
func (c *Camera) Fit(min, max graph.Point, padding float64) {
	w := math.Max(max.X-min.X, 1)
	h := math.Max(max.Y-min.Y, 1)
	availW := math.Max(c.Width-2*padding, 1)
	availH := math.Max(c.Height-2*padding, 1)
	c.Rotation = 0
	c.setZoom(math.Min(availW/w, availH/h))
	c.Focus(graph.Point{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2})
}

// Limits returns the camera configuration.
func (c *Camera) Limits() Config { return c.cfg }

func (c *Camera) setZoom(z float64) {
	c.Zoom = math.Max(c.cfg.MinZoom, math.Min(c.cfg.MaxZoom, z))
}
