package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/interaction"
	"github.com/msalah0e/conceptmap/internal/layout"
	"github.com/msalah0e/conceptmap/internal/scene"
	"github.com/msalah0e/conceptmap/internal/viewport"
	"go.uber.org/zap"
)

// FitPadding is the margin kept around the graph by Fit.
const FitPadding = 40

// Options configures a session.
type Options struct {
	Layout layout.Params
	Camera viewport.Config
	Styles scene.Styles
	Width  float64
	Height float64
	Logger *zap.Logger

	// Observer, if set, sees every layout iteration. It runs on the layout
	// goroutine.
	Observer func(layout.IterationStats)
}

// Outcome is delivered when an asynchronous layout pass ends.
type Outcome struct {
	Result layout.Result
	Err    error
}

// Session owns the engine state for one map.
type Session struct {
	mu     sync.Mutex
	model  *graph.Model
	engine *layout.Engine
	camera *viewport.Camera
	ctl    *interaction.Controller
	styles scene.Styles
	logger *zap.Logger

	key   string
	title string

	gen     uint64
	cancel  context.CancelFunc
	last    Outcome
	pending bool
	// fitNext frames the camera after the first applied pass following a
	// load. Later passes leave zoom and pan alone.
	fitNext bool
}

// New creates an empty session.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := graph.New(logger)
	engineOpts := []layout.Option{layout.WithLogger(logger)}
	if opts.Observer != nil {
		engineOpts = append(engineOpts, layout.WithObserver(opts.Observer))
	}
	return &Session{
		model:  m,
		engine: layout.New(opts.Layout, engineOpts...),
		camera: viewport.New(opts.Camera, opts.Width, opts.Height),
		ctl:    interaction.New(m, logger),
		styles: opts.Styles,
		logger: logger,
	}
}

// Model exposes the underlying model for read-only use such as export.
func (s *Session) Model() *graph.Model { return s.model }

// Key returns the key of the loaded map.
func (s *Session) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Title returns the title of the loaded map.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Subscribe registers a controller listener. Listeners run with the session
// lock held and must not call back into the session.
func (s *Session) Subscribe(l interaction.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.Subscribe(l)
}

// OnSelect registers fn for every NodeSelected event, along with the key of
// the map the node belongs to. The same locking rule as Subscribe applies.
func (s *Session) OnSelect(fn func(key string, n graph.Node)) {
	s.Subscribe(func(ev interaction.Event) {
		if ev.Kind == interaction.NodeSelected && ev.Node != nil {
			fn(s.key, *ev.Node)
		}
	})
}

// Load replaces the graph. Any in-flight layout pass is abandoned, the
// selection goes back to Idle and the camera is reset.
func (s *Session) Load(key string, snap *graph.Snapshot) graph.LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortLocked()
	report := s.model.LoadSnapshot(snap)
	s.ctl.Reset()
	s.camera.Reset()
	s.key = key
	s.title = snap.Title
	s.last = Outcome{}
	s.fitNext = true

	s.logger.Info("map loaded",
		zap.String("key", key),
		zap.Int("nodes", report.Nodes),
		zap.Int("edges", report.Edges),
		zap.Int("dropped_edges", len(report.DroppedEdges)),
	)
	return report
}

// Layout runs a pass synchronously. The first pass after a load also fits
// the camera to the result. A pass abandoned by a later Load, Resize,
// StartLayout or Close returns graph.ErrStaleLayout and writes nothing.
func (s *Session) Layout(ctx context.Context) (layout.Result, error) {
	s.mu.Lock()
	s.abortLocked()
	gen := s.gen
	s.mu.Unlock()

	return s.pass(ctx, gen)
}

// StartLayout runs a pass on a goroutine. A later Load, Resize or
// StartLayout abandons it; an abandoned pass writes nothing. The returned
// channel receives exactly one outcome.
func (s *Session) StartLayout(ctx context.Context) <-chan Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Session) startLocked(parent context.Context) <-chan Outcome {
	s.abortLocked()

	ctx, cancel := context.WithCancel(parent)
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.pending = true

	out := make(chan Outcome, 1)
	go func() {
		defer cancel()
		res, err := s.pass(ctx, gen)

		switch {
		case err == nil:
			s.logger.Debug("layout finished",
				zap.Int("iterations", res.Iterations),
				zap.Bool("converged", res.Converged))
		case errors.Is(err, context.Canceled), errors.Is(err, graph.ErrStaleLayout):
			s.logger.Debug("layout abandoned", zap.Error(err))
		default:
			s.logger.Error("layout failed", zap.Error(err))
		}
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// pass computes positions without the lock, then applies them under the lock
// only if gen is still current and ctx is still live.
func (s *Session) pass(ctx context.Context, gen uint64) (layout.Result, error) {
	plan, err := s.engine.Compute(ctx, s.model.LayoutInput())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		if err == nil {
			if err = ctx.Err(); err == nil {
				err = graph.ErrStaleLayout
			}
		}
		return layout.Result{}, err
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil && plan.Nodes > 0 {
		if aerr := s.model.ApplyLayout(plan.Revision, plan.IDs, plan.Positions); aerr != nil {
			err = fmt.Errorf("apply layout: %w", aerr)
		}
	}

	res := plan.Result
	if err != nil {
		res = layout.Result{}
	}
	s.last = Outcome{Result: res, Err: err}
	s.pending = false
	s.cancel = nil
	if err == nil && s.fitNext {
		s.fitLocked()
		s.fitNext = false
	}
	return res, err
}

func (s *Session) abortLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.pending = false
}

// Close abandons any in-flight pass.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortLocked()
}

// LastLayout returns the outcome of the most recent pass that was not
// abandoned, and whether a pass is still running.
func (s *Session) LastLayout() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.pending
}

// Resize changes the viewport size and starts a fresh pass. Zoom and pan are
// kept; only the centre anchor moves.
func (s *Session) Resize(ctx context.Context, width, height float64) <-chan Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Resize(width, height)
	return s.startLocked(ctx)
}

// Frame builds the current sprite frame.
func (s *Session) Frame() scene.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Session) frameLocked() scene.Frame {
	return scene.Build(s.model, s.camera, s.ctl.Selection(), s.styles)
}

// PointerMove forwards a pointer position in screen pixels.
func (s *Session) PointerMove(x, y float64) interaction.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.frameLocked()
	s.ctl.PointerMove(&f, x, y)
	return s.ctl.Selection()
}

// Click forwards a click in screen pixels.
func (s *Session) Click(x, y float64) interaction.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.frameLocked()
	s.ctl.Click(&f, x, y)
	return s.ctl.Selection()
}

// PointerLeave clears hover.
func (s *Session) PointerLeave() interaction.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.PointerLeave()
	return s.ctl.Selection()
}

// Select selects a node by id, e.g. from a search result.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctl.Select(id)
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.Deselect()
}

// Selection returns the hover and selection state.
func (s *Session) Selection() interaction.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctl.Selection()
}

// State returns the controller mode.
func (s *Session) State() interaction.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctl.State()
}

// Search ranks nodes against a query.
func (s *Session) Search(query string) []graph.SearchResult {
	return s.model.Search(query)
}

// Camera returns a copy of the camera.
func (s *Session) Camera() viewport.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.camera
}

// ZoomIn zooms by one step about the viewport centre.
func (s *Session) ZoomIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.ZoomIn()
}

// ZoomOut zooms out by one step about the viewport centre.
func (s *Session) ZoomOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.ZoomOut()
}

// ZoomAt zooms by factor keeping the screen point (x, y) fixed.
func (s *Session) ZoomAt(x, y, factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.ZoomAt(graph.Point{X: x, Y: y}, factor)
}

// Pan moves the view by a screen-space delta.
func (s *Session) Pan(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Pan(dx, dy)
}

// ResetCamera restores zoom 1 and zero pan.
func (s *Session) ResetCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Reset()
}

// Fit frames every placed node.
func (s *Session) Fit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitLocked()
}

func (s *Session) fitLocked() {
	min, max, ok := s.model.Bounds()
	if !ok {
		return
	}
	s.camera.Fit(min, max, FitPadding)
}

// Focus centres the view on a node.
func (s *Session) Focus(id string) error {
	n, ok := s.model.Node(id)
	if !ok {
		return graph.ErrNodeNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Focus(n.Position)
	return nil
}
