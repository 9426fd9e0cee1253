package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/interaction"
	"github.com/msalah0e/conceptmap/internal/layout"
	"github.com/msalah0e/conceptmap/internal/scene"
	"github.com/msalah0e/conceptmap/internal/viewport"
)

const pathJSON = `{
  "key": "path",
  "title": "Path",
  "nodes": [
    {"id": "a", "label": "Numbers", "category": "core-concept"},
    {"id": "b", "label": "Fractions", "category": "concept", "description": "parts of a whole"},
    {"id": "c", "label": "Decimals", "category": "skill"}
  ],
  "edges": [
    {"id": "ab", "source": "a", "target": "b", "relationType": 1},
    {"id": "bc", "source": "b", "target": "c", "relationType": 2},
    {"id": "bx", "source": "b", "target": "ghost", "relationType": 0}
  ]
}`

const completeJSON = `{
  "key": "k5",
  "nodes": [
    {"id": "n0", "label": "N0", "category": "concept"},
    {"id": "n1", "label": "N1", "category": "concept"},
    {"id": "n2", "label": "N2", "category": "concept"},
    {"id": "n3", "label": "N3", "category": "concept"},
    {"id": "n4", "label": "N4", "category": "concept"}
  ],
  "edges": [
    {"source": "n0", "target": "n1"}, {"source": "n0", "target": "n2"},
    {"source": "n0", "target": "n3"}, {"source": "n0", "target": "n4"},
    {"source": "n1", "target": "n2"}, {"source": "n1", "target": "n3"},
    {"source": "n1", "target": "n4"}, {"source": "n2", "target": "n3"},
    {"source": "n2", "target": "n4"}, {"source": "n3", "target": "n4"}
  ]
}`

func snapshot(t *testing.T, raw string) *graph.Snapshot {
	t.Helper()
	s, err := graph.DecodeSnapshot(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return s
}

func newSession(observer func(layout.IterationStats)) *Session {
	return New(Options{
		Layout:   layout.DefaultParams(),
		Camera:   viewport.DefaultConfig(),
		Styles:   scene.DefaultStyles(),
		Width:    800,
		Height:   600,
		Observer: observer,
	})
}

func loadedPath(t *testing.T) *Session {
	t.Helper()
	s := newSession(nil)
	report := s.Load("path", snapshot(t, pathJSON))
	if report.Nodes != 3 || report.Edges != 2 || len(report.DroppedEdges) != 1 {
		t.Fatalf("unexpected load report %+v", report)
	}
	if _, err := s.Layout(context.Background()); err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	return s
}

func TestLayoutFitsCamera(t *testing.T) {
	s := loadedPath(t)

	f := s.Frame()
	if len(f.Nodes) != 3 || len(f.Edges) != 2 {
		t.Fatalf("expected 3 sprites and 2 edges, got %d/%d", len(f.Nodes), len(f.Edges))
	}
	for _, n := range f.Nodes {
		if n.X < 0 || n.X > 800 || n.Y < 0 || n.Y > 600 {
			t.Errorf("sprite %s outside the viewport: %.1f,%.1f", n.NodeID, n.X, n.Y)
		}
	}
	out, running := s.LastLayout()
	if running || out.Err != nil || out.Result.Nodes != 3 {
		t.Errorf("unexpected last layout %+v running=%v", out, running)
	}
}

func TestClickSelectsAndDescribes(t *testing.T) {
	s := loadedPath(t)

	var events []interaction.EventKind
	s.Subscribe(func(ev interaction.Event) { events = append(events, ev.Kind) })

	f := s.Frame()
	b, ok := f.Sprite("b")
	if !ok {
		t.Fatal("missing sprite b")
	}
	sel := s.Click(b.X, b.Y)
	if sel.SelectedNodeID != "b" || s.State() != interaction.Selected {
		t.Fatalf("expected Selected(b), got %+v", sel)
	}
	if len(events) == 0 || events[len(events)-1] != interaction.NodeSelected {
		t.Errorf("expected NodeSelected event, got %v", events)
	}

	d, ok := s.Detail()
	if !ok {
		t.Fatal("expected detail for selection")
	}
	if d.Node.ID != "b" || len(d.Neighbors) != 2 || len(d.Relations) != 2 {
		t.Fatalf("unexpected detail %+v", d)
	}
	if d.Relations[0].Other.ID != "a" || d.Relations[0].Outgoing || d.Relations[0].Label != "contains" {
		t.Errorf("unexpected first relation %+v", d.Relations[0])
	}
	if d.Relations[1].Other.ID != "c" || !d.Relations[1].Outgoing {
		t.Errorf("unexpected second relation %+v", d.Relations[1])
	}
}

func TestPointerMoveAndLeave(t *testing.T) {
	s := loadedPath(t)
	f := s.Frame()
	c, _ := f.Sprite("c")

	if sel := s.PointerMove(c.X, c.Y); sel.HoveredNodeID != "c" {
		t.Fatalf("expected hover on c, got %+v", sel)
	}
	if s.State() != interaction.Hovering {
		t.Errorf("expected Hovering, got %s", s.State())
	}
	if sel := s.PointerLeave(); sel.HoveredNodeID != "" {
		t.Errorf("expected hover cleared, got %+v", sel)
	}
	if _, ok := s.Detail(); ok {
		t.Error("no detail without a selection")
	}
}

func TestLoadResetsSelection(t *testing.T) {
	s := loadedPath(t)
	if !s.Select("a") {
		t.Fatal("Select(a) failed")
	}
	s.ZoomIn()

	s.Load("k5", snapshot(t, completeJSON))
	if s.State() != interaction.Idle {
		t.Errorf("expected Idle after load, got %s", s.State())
	}
	if s.Key() != "k5" || s.Title() != "" {
		t.Errorf("unexpected key/title %q %q", s.Key(), s.Title())
	}
	if cam := s.Camera(); cam.Zoom != 1 || cam.PanX != 0 {
		t.Errorf("expected camera reset, got %+v", cam)
	}
	if s.Select("a") {
		t.Error("node from the previous map should be gone")
	}
}

func TestStartLayoutLastLoadWins(t *testing.T) {
	var block atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	block.Store(true)

	s := newSession(func(st layout.IterationStats) {
		if st.Iteration == 1 && block.CompareAndSwap(true, false) {
			close(started)
			<-release
		}
	})
	s.Load("k5", snapshot(t, completeJSON))
	first := s.StartLayout(context.Background())

	<-started
	s.Load("path", snapshot(t, pathJSON))
	close(release)

	out := <-first
	if !errors.Is(out.Err, context.Canceled) && !errors.Is(out.Err, graph.ErrStaleLayout) {
		t.Fatalf("expected abandoned pass, got %v", out.Err)
	}
	for _, n := range s.Model().Nodes() {
		if n.Placed {
			t.Errorf("abandoned pass placed %s", n.ID)
		}
	}
	if last, running := s.LastLayout(); running || last.Err != nil || last.Result.Nodes != 0 {
		t.Errorf("abandoned outcome should not be recorded, got %+v running=%v", last, running)
	}

	second := <-s.StartLayout(context.Background())
	if second.Err != nil {
		t.Fatalf("second pass failed: %v", second.Err)
	}
	for _, n := range s.Model().Nodes() {
		if !n.Placed {
			t.Errorf("node %s not placed by the live pass", n.ID)
		}
	}
}

func TestFrameDuringAsyncLayout(t *testing.T) {
	s := newSession(nil)
	s.Load("k5", snapshot(t, completeJSON))

	done := s.StartLayout(context.Background())
	for {
		select {
		case out := <-done:
			if out.Err != nil {
				t.Fatalf("layout failed: %v", out.Err)
			}
			if f := s.Frame(); len(f.Nodes) != 5 {
				t.Errorf("expected 5 sprites, got %d", len(f.Nodes))
			}
			return
		default:
			_ = s.Frame()
			s.PointerMove(400, 300)
		}
	}
}

func TestResizeRelayouts(t *testing.T) {
	s := loadedPath(t)

	out := <-s.Resize(context.Background(), 1024, 768)
	if out.Err != nil {
		t.Fatalf("relayout failed: %v", out.Err)
	}
	cam := s.Camera()
	if cam.Width != 1024 || cam.Height != 768 {
		t.Errorf("expected 1024x768, got %.0fx%.0f", cam.Width, cam.Height)
	}
}

func TestResizeKeepsZoomAndPan(t *testing.T) {
	s := loadedPath(t)
	s.ZoomIn()
	s.ZoomIn()
	s.Pan(37, -21)
	before := s.Camera()

	out := <-s.Resize(context.Background(), 1024, 768)
	if out.Err != nil {
		t.Fatalf("relayout failed: %v", out.Err)
	}
	after := s.Camera()
	if after.Zoom != before.Zoom || after.PanX != before.PanX || after.PanY != before.PanY {
		t.Errorf("resize changed the view: zoom %.4f -> %.4f, pan (%.2f,%.2f) -> (%.2f,%.2f)",
			before.Zoom, after.Zoom, before.PanX, before.PanY, after.PanX, after.PanY)
	}

	// An explicit relayout keeps the view too; Fit is the only reframing.
	<-s.StartLayout(context.Background())
	if cam := s.Camera(); cam.Zoom != before.Zoom {
		t.Errorf("relayout changed zoom to %.4f", cam.Zoom)
	}
}

func TestFirstPassAfterLoadFits(t *testing.T) {
	s := newSession(nil)
	s.Load("path", snapshot(t, pathJSON))

	// The terminal view lays out on its first window size.
	out := <-s.Resize(context.Background(), 400, 300)
	if out.Err != nil {
		t.Fatalf("layout failed: %v", out.Err)
	}
	for _, n := range s.Frame().Nodes {
		if n.X < 0 || n.X > 400 || n.Y < 0 || n.Y > 300 {
			t.Errorf("sprite %s outside the viewport: %.1f,%.1f", n.NodeID, n.X, n.Y)
		}
	}
}

// resizeOnLastIteration returns a session whose first pass is abandoned by a
// Resize issued from its final iteration. The pass started by that Resize
// blocks until release is closed, and its outcome is sent on replaced.
func resizeOnLastIteration(t *testing.T, release <-chan struct{}) (*Session, <-chan (<-chan Outcome)) {
	t.Helper()
	params := layout.DefaultParams()
	params.MaxIterations = 3
	params.ConvergenceThreshold = 0

	var s *Session
	var calls atomic.Int32
	replaced := make(chan (<-chan Outcome), 1)
	s = New(Options{
		Layout: params,
		Camera: viewport.DefaultConfig(),
		Styles: scene.DefaultStyles(),
		Width:  800,
		Height: 600,
		Observer: func(st layout.IterationStats) {
			switch calls.Add(1) {
			case 3:
				replaced <- s.Resize(context.Background(), 1024, 768)
			case 4:
				<-release
			}
		},
	})
	s.Load("path", snapshot(t, pathJSON))
	return s, replaced
}

func assertUnplaced(t *testing.T, s *Session) {
	t.Helper()
	for _, n := range s.Model().Nodes() {
		if n.Placed {
			t.Errorf("abandoned pass placed %s", n.ID)
		}
	}
}

func TestAbandonedAsyncPassWritesNothing(t *testing.T) {
	release := make(chan struct{})
	s, replaced := resizeOnLastIteration(t, release)

	out := <-s.StartLayout(context.Background())
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", out.Err)
	}
	assertUnplaced(t, s)

	close(release)
	if next := <-<-replaced; next.Err != nil {
		t.Fatalf("replacement pass failed: %v", next.Err)
	}
	for _, n := range s.Model().Nodes() {
		if !n.Placed {
			t.Errorf("node %s not placed by the replacement pass", n.ID)
		}
	}
}

func TestAbandonedSyncPassWritesNothing(t *testing.T) {
	release := make(chan struct{})
	s, replaced := resizeOnLastIteration(t, release)

	if _, err := s.Layout(context.Background()); !errors.Is(err, graph.ErrStaleLayout) {
		t.Errorf("expected ErrStaleLayout, got %v", err)
	}
	assertUnplaced(t, s)

	close(release)
	<-<-replaced
}

func TestCloseCancelsPass(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	s := newSession(func(st layout.IterationStats) {
		if once.CompareAndSwap(false, true) {
			close(started)
			<-release
		}
	})
	s.Load("k5", snapshot(t, completeJSON))
	done := s.StartLayout(context.Background())

	<-started
	s.Close()
	close(release)

	if out := <-done; !errors.Is(out.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", out.Err)
	}
}

func TestFocusAndSearch(t *testing.T) {
	s := loadedPath(t)

	if err := s.Focus("ghost"); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
	if err := s.Focus("c"); err != nil {
		t.Fatalf("Focus failed: %v", err)
	}
	f := s.Frame()
	c, _ := f.Sprite("c")
	if c.X < 399.99 || c.X > 400.01 || c.Y < 299.99 || c.Y > 300.01 {
		t.Errorf("expected c centred, got %.2f,%.2f", c.X, c.Y)
	}

	results := s.Search("fraction")
	if len(results) != 1 || results[0].Node.ID != "b" {
		t.Fatalf("unexpected search results %+v", results)
	}
	if !s.Select(results[0].Node.ID) {
		t.Error("selecting a search hit should succeed")
	}
	s.Deselect()
	if s.Selection().SelectedNodeID != "" {
		t.Error("expected selection cleared")
	}
}

func TestOnSelectCarriesMapKey(t *testing.T) {
	s := loadedPath(t)

	type visit struct{ key, id string }
	var got []visit
	s.OnSelect(func(key string, n graph.Node) { got = append(got, visit{key, n.ID}) })

	s.Select("a")
	s.Select("a")
	s.PointerLeave()
	s.Select("c")

	if len(got) != 2 || got[0] != (visit{"path", "a"}) || got[1] != (visit{"path", "c"}) {
		t.Errorf("unexpected selections %+v", got)
	}
}

func TestCameraOps(t *testing.T) {
	s := newSession(nil)
	s.ZoomIn()
	s.ZoomOut()
	if z := s.Camera().Zoom; z < 0.999 || z > 1.001 {
		t.Errorf("expected zoom 1, got %f", z)
	}
	s.Pan(10, -5)
	if cam := s.Camera(); cam.PanX != 10 || cam.PanY != -5 {
		t.Errorf("unexpected pan %+v", cam)
	}
	s.ZoomAt(100, 100, 2)
	s.ResetCamera()
	if cam := s.Camera(); cam.Zoom != 1 || cam.PanX != 0 || cam.PanY != 0 {
		t.Errorf("expected reset camera, got %+v", cam)
	}
	// Fit on an empty map is a no-op.
	s.Fit()
}
