package layout

import (
	"context"
	"fmt"
	"math"

	"github.com/msalah0e/conceptmap/internal/graph"
	"go.uber.org/zap"
)

// Params holds the physics constants of a layout pass.
type Params struct {
	Repulsion            float64 `toml:"repulsion" env:"REPULSION" validate:"gt=0"`
	Attraction           float64 `toml:"attraction" env:"ATTRACTION" validate:"gt=0"`
	MaxDisplacement      float64 `toml:"max_displacement" env:"MAX_DISPLACEMENT" validate:"gt=0"`
	MinDistance          float64 `toml:"min_distance" env:"MIN_DISTANCE" validate:"gt=0"`
	MaxIterations        int     `toml:"max_iterations" env:"MAX_ITERATIONS" validate:"gte=1,lte=10000"`
	ConvergenceThreshold float64 `toml:"convergence_threshold" env:"CONVERGENCE_THRESHOLD" validate:"gte=0"`
	GridSpacing          float64 `toml:"grid_spacing" env:"GRID_SPACING" validate:"gt=0"`
}

// DefaultParams returns the constants the engine is tuned for.
func DefaultParams() Params {
	return Params{
		Repulsion:            100000,
		Attraction:           0.1,
		MaxDisplacement:      10,
		MinDistance:          0.1,
		MaxIterations:        50,
		ConvergenceThreshold: 0.01,
		GridSpacing:          100,
	}
}

// IterationStats describes one iteration of a pass.
type IterationStats struct {
	Iteration         int
	TotalDisplacement float64
	MaxDisplacement   float64
}

// Result describes a finished pass.
type Result struct {
	Revision   uint64
	Nodes      int
	Iterations int
	Converged  bool
}

// Plan holds positions computed for a LayoutInput but not yet applied.
type Plan struct {
	Result
	IDs       []string
	Positions []graph.Point
}

// Engine runs layout passes.
type Engine struct {
	params   Params
	logger   *zap.Logger
	observer func(IterationStats)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers a callback invoked after every iteration.
func WithObserver(fn func(IterationStats)) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates an engine with the given constants.
func New(p Params, opts ...Option) *Engine {
	e := &Engine{params: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine constants.
func (e *Engine) Params() Params { return e.params }

// Run performs a synchronous pass over m and writes the positions back. If
// ctx is cancelled or m is reloaded while the pass runs, nothing is written.
func (e *Engine) Run(ctx context.Context, m *graph.Model) (Result, error) {
	plan, err := e.Compute(ctx, m.LayoutInput())
	if err != nil {
		return Result{}, err
	}
	if plan.Nodes == 0 {
		return plan.Result, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := m.ApplyLayout(plan.Revision, plan.IDs, plan.Positions); err != nil {
		return Result{}, fmt.Errorf("apply layout: %w", err)
	}
	return plan.Result, nil
}

// Compute runs the simulation on a captured input without touching the model.
func (e *Engine) Compute(ctx context.Context, in graph.LayoutInput) (Plan, error) {
	n := len(in.IDs)
	plan := Plan{
		Result: Result{Revision: in.Revision, Nodes: n},
		IDs:    in.IDs,
	}
	if n == 0 {
		return plan, nil
	}

	pos := InitialPositions(in, e.params.GridSpacing)

	index := make(map[string]int, n)
	for i, id := range in.IDs {
		index[id] = i
	}
	type link struct{ s, t int }
	links := make([]link, 0, len(in.Edges))
	for _, edge := range in.Edges {
		s, okS := index[edge.SourceID]
		t, okT := index[edge.TargetID]
		if !okS || !okT {
			e.logger.Warn("layout skipping unresolved edge", zap.String("edge", edge.ID))
			continue
		}
		links = append(links, link{s, t})
	}

	p := e.params
	disp := make([]graph.Point, n)
	for iter := 1; iter <= p.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}

		for i := range disp {
			disp[i] = graph.Point{}
		}

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := pos[i].X - pos[j].X
				dy := pos[i].Y - pos[j].Y
				dist := math.Sqrt(dx*dx + dy*dy)
				if dist < p.MinDistance {
					continue
				}
				f := p.Repulsion / (dist * dist)
				ux, uy := dx/dist, dy/dist
				disp[i].X += f * ux
				disp[i].Y += f * uy
				disp[j].X -= f * ux
				disp[j].Y -= f * uy
			}
		}

		// Attraction magnitude is k*|d| along d/|d|, which is just k*d.
		for _, l := range links {
			dx := pos[l.s].X - pos[l.t].X
			dy := pos[l.s].Y - pos[l.t].Y
			disp[l.s].X -= p.Attraction * dx
			disp[l.s].Y -= p.Attraction * dy
			disp[l.t].X += p.Attraction * dx
			disp[l.t].Y += p.Attraction * dy
		}

		stats := IterationStats{Iteration: iter}
		for i := range pos {
			step := math.Sqrt(disp[i].X*disp[i].X + disp[i].Y*disp[i].Y)
			if step > p.MaxDisplacement {
				scale := p.MaxDisplacement / step
				disp[i].X *= scale
				disp[i].Y *= scale
				step = p.MaxDisplacement
			}
			pos[i].X += disp[i].X
			pos[i].Y += disp[i].Y
			stats.TotalDisplacement += step
			stats.MaxDisplacement = math.Max(stats.MaxDisplacement, step)
		}

		if e.observer != nil {
			e.observer(stats)
		}
		plan.Iterations = iter
		if stats.TotalDisplacement/float64(n) < p.ConvergenceThreshold {
			plan.Converged = true
			break
		}
	}

	e.logger.Debug("layout pass finished",
		zap.Uint64("revision", in.Revision),
		zap.Int("nodes", n),
		zap.Int("edges", len(links)),
		zap.Int("iterations", plan.Iterations),
		zap.Bool("converged", plan.Converged),
	)
	plan.Positions = pos
	return plan, nil
}

// InitialPositions returns the starting point of every node: its prior
// position if it has one, otherwise a grid cell derived from its insertion
// index.
func InitialPositions(in graph.LayoutInput, spacing float64) []graph.Point {
	n := len(in.IDs)
	pos := make([]graph.Point, n)
	if n == 0 {
		return pos
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	for i := range pos {
		if i < len(in.Placed) && in.Placed[i] {
			pos[i] = in.Positions[i]
			continue
		}
		pos[i] = graph.Point{
			X: float64(i%cols) * spacing,
			Y: float64(i/cols) * spacing,
		}
	}
	return pos
}
