package viewport

import (
	"math"
	"testing"

	"github.com/msalah0e/conceptmap/internal/graph"
)

const eps = 1e-9

func near(a, b graph.Point, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestIdentityCentresOrigin(t *testing.T) {
	c := New(DefaultConfig(), 800, 600)
	got := c.WorldToScreen(graph.Point{})
	if got != (graph.Point{X: 400, Y: 300}) {
		t.Errorf("expected origin at viewport centre, got %v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		cam  Camera
	}{
		{"identity", Camera{Zoom: 1, Width: 800, Height: 600}},
		{"zoomed", Camera{Zoom: 3.7, PanX: -120, PanY: 45, Width: 1024, Height: 768}},
		{"tiny zoom", Camera{Zoom: 0.1, PanX: 9000, PanY: -3, Width: 320, Height: 200}},
		{"rotated", Camera{Zoom: 2, PanX: 10, PanY: 10, Rotation: 0.7, Width: 500, Height: 500}},
	}
	points := []graph.Point{{X: 0, Y: 0}, {X: 12.5, Y: -99}, {X: 1e4, Y: 3e3}, {X: -0.001, Y: 0.002}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.cam
			for _, p := range points {
				got := c.WorldToScreen(c.ScreenToWorld(p))
				if !near(got, p, 1e-6) {
					t.Errorf("screen round trip %v -> %v", p, got)
				}
				back := c.ScreenToWorld(c.WorldToScreen(p))
				if !near(back, p, 1e-6) {
					t.Errorf("world round trip %v -> %v", p, back)
				}
			}
		})
	}
}

func TestZoomInOut(t *testing.T) {
	c := New(DefaultConfig(), 100, 100)
	c.ZoomIn()
	if math.Abs(c.Zoom-1.2) > eps {
		t.Errorf("expected 1.2, got %f", c.Zoom)
	}
	c.ZoomOut()
	c.ZoomOut()
	if math.Abs(c.Zoom-1/1.2) > eps {
		t.Errorf("expected %f, got %f", 1/1.2, c.Zoom)
	}
}

func TestZoomClamp(t *testing.T) {
	c := New(DefaultConfig(), 100, 100)
	for i := 0; i < 100; i++ {
		c.ZoomIn()
	}
	if c.Zoom != 10 {
		t.Errorf("expected max zoom 10, got %f", c.Zoom)
	}
	for i := 0; i < 100; i++ {
		c.ZoomOut()
	}
	if c.Zoom != 0.1 {
		t.Errorf("expected min zoom 0.1, got %f", c.Zoom)
	}
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	c := New(DefaultConfig(), 800, 600)
	c.Pan(30, -20)
	cursor := graph.Point{X: 612, Y: 87}
	before := c.ScreenToWorld(cursor)

	c.ZoomAt(cursor, 1.5)

	if math.Abs(c.Zoom-1.5) > eps {
		t.Errorf("expected zoom 1.5, got %f", c.Zoom)
	}
	if !near(c.WorldToScreen(before), cursor, 1e-9) {
		t.Errorf("anchor drifted to %v", c.WorldToScreen(before))
	}
}

func TestReset(t *testing.T) {
	c := New(DefaultConfig(), 800, 600)
	c.Pan(10, 10)
	c.ZoomIn()
	c.Reset()
	if c.PanX != 0 || c.PanY != 0 || c.Zoom != 1 {
		t.Errorf("expected identity, got %+v", c)
	}
}

func TestResizeKeepsZoomAndPan(t *testing.T) {
	c := New(DefaultConfig(), 800, 600)
	c.Pan(15, -5)
	c.ZoomIn()

	c.Resize(1000, 400)

	if c.PanX != 15 || c.PanY != -5 || math.Abs(c.Zoom-1.2) > eps {
		t.Errorf("resize changed transform: %+v", c)
	}
	if got := c.WorldToScreen(graph.Point{}); got != (graph.Point{X: 515, Y: 195}) {
		t.Errorf("expected new centre anchor, got %v", got)
	}
}

func TestFit(t *testing.T) {
	c := New(DefaultConfig(), 400, 200)
	c.Fit(graph.Point{X: -100, Y: -50}, graph.Point{X: 300, Y: 150}, 0)

	if math.Abs(c.Zoom-1) > eps {
		t.Errorf("expected zoom 1, got %f", c.Zoom)
	}
	if !near(c.WorldToScreen(graph.Point{X: -100, Y: -50}), graph.Point{X: 0, Y: 0}, 1e-9) {
		t.Errorf("top-left corner should map to screen origin, got %v", c.WorldToScreen(graph.Point{X: -100, Y: -50}))
	}
}

func TestFocus(t *testing.T) {
	c := New(DefaultConfig(), 640, 480)
	c.ZoomIn()
	c.Focus(graph.Point{X: 50, Y: -25})
	if !near(c.WorldToScreen(graph.Point{X: 50, Y: -25}), graph.Point{X: 320, Y: 240}, 1e-9) {
		t.Errorf("focused point not centred: %v", c.WorldToScreen(graph.Point{X: 50, Y: -25}))
	}
}
