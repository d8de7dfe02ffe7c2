package refine

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/flowgrid/flowgrid/pkg/model"
	"github.com/flowgrid/flowgrid/pkg/solver"
)

// Engine runs the refinement pipeline against one registry. It is stateless
// between invocations: layers, happy-path sets, and exception-chain sets are
// recomputed per call and discarded.
//
// The zero value is not usable; create engines with [New].
type Engine struct {
	reg    *model.Registry
	mut    model.Mutator
	solver solver.Solver
	cfg    Config
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default tuning configuration. Zero-valued fields
// are backfilled with defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg.withDefaults() }
}

// WithMutator replaces the default registry mutator, e.g. with an adapter
// forwarding commands to an external editing toolkit.
func WithMutator(m model.Mutator) Option {
	return func(e *Engine) { e.mut = m }
}

// WithSolver replaces the built-in layered solver.
func WithSolver(s solver.Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// WithLogger attaches a logger for per-stage debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over the given registry with the default config,
// mutator, and solver unless options override them.
func New(reg *model.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		cfg:    DefaultConfig(),
		solver: solver.NewLayered(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.mut == nil {
		e.mut = model.NewMutator(reg)
	}
	return e
}

// Options scope one pipeline invocation.
type Options struct {
	// HappyPath lists the connection ids of the caller-identified primary
	// flow. Empty means no anchor row: layers distribute around their own
	// centres instead.
	HappyPath []string
	// Container scopes the pipeline to one compound container's children.
	// Nil processes the diagram's top level.
	Container *model.Element
	// Spacing overrides the solver options derived from the engine config.
	Spacing *solver.Options
	// Imported marks a diagram whose original coordinates vary widely, which
	// extends the happy-path correction radius.
	Imported bool
}

// Diagnostics reports the residual edge crossings after a subset layout.
type Diagnostics struct {
	CrossingCount int            `json:"crossing_count"`
	CrossingPairs []CrossingPair `json:"crossing_pairs,omitempty"`
}

// passContext carries the per-invocation derived state every pass reads:
// the happy-path sets, the exception-chain set, and the movement-threshold
// mutation helper.
type passContext struct {
	cfg       Config
	reg       *model.Registry
	mut       model.Mutator
	logger    *log.Logger
	container *model.Element
	happy     map[string]bool // element ids on the primary flow
	happyConn map[string]bool // connection ids of the primary flow
	exception map[string]bool // element ids in exception chains
	imported  bool
}

func (p *passContext) isHappy(e *model.Element) bool     { return e != nil && p.happy[e.ID] }
func (p *passContext) isException(e *model.Element) bool { return e != nil && p.exception[e.ID] }

// scoped returns the container's direct children of one category.
func (p *passContext) scoped(cat model.Category) []*model.Element {
	return p.reg.Filter(func(e *model.Element) bool {
		return e.Parent == p.container && e.Category == cat
	})
}

// moveBy shifts one element, suppressing sub-threshold deltas so repeated
// pipeline runs converge instead of oscillating.
func (p *passContext) moveBy(e *model.Element, dx, dy float64) {
	if math.Abs(dx) < p.cfg.MovementThreshold {
		dx = 0
	}
	if math.Abs(dy) < p.cfg.MovementThreshold {
		dy = 0
	}
	if dx == 0 && dy == 0 {
		return
	}
	p.mut.MoveElements([]*model.Element{e}, dx, dy)
}

func (e *Engine) newPassContext(opts Options) *passContext {
	p := &passContext{
		cfg:       e.cfg,
		reg:       e.reg,
		mut:       e.mut,
		logger:    e.logger,
		container: opts.Container,
		happy:     make(map[string]bool),
		happyConn: make(map[string]bool),
		imported:  opts.Imported,
	}
	for _, id := range opts.HappyPath {
		c := e.reg.Connection(id)
		if c == nil {
			continue
		}
		p.happyConn[id] = true
		if c.Source != nil {
			p.happy[c.Source.ID] = true
		}
		if c.Target != nil {
			p.happy[c.Target.ID] = true
		}
	}
	return p
}

// Layout runs the full refinement pipeline over the diagram (or one compound
// container), mutating the registry in place. The pass ordering is fixed;
// see the package documentation.
func (e *Engine) Layout(ctx context.Context, opts Options) error {
	p := e.newPassContext(opts)
	p.exception = discoverExceptionChains(p, opts.Container)

	shapes := e.solverShapes(p, opts.Container)
	if len(shapes) == 0 {
		return nil
	}

	offsetX, offsetY := topLeft(shapes)
	// An on-grid anchor keeps every downstream rounding decision identical
	// between runs, so a re-run reproduces its input instead of drifting.
	if grid := e.cfg.PixelGrid; grid > 0 {
		offsetX, offsetY = quantize(offsetX, grid), quantize(offsetY, grid)
	}
	res, err := e.solver.Solve(ctx, e.buildSolverGraph(p, shapes), e.solverOptions(opts))
	if err != nil {
		return fmt.Errorf("solve layout: %w", err)
	}
	applySolverResult(p, res, offsetX, offsetY)
	e.logger.Debug("applied solver result", "nodes", len(res.Nodes), "edges", len(res.Edges))

	layers := detectLayers(e.reg, opts.Container, e.cfg)
	e.logger.Debug("detected layers", "count", len(layers))
	snapGrid(p, layers)

	// Grid snapping moves columns; alignment needs fresh layers.
	layers = detectLayers(e.reg, opts.Container, e.cfg)
	alignPasses(p, layers)

	boundaryPass(p, true)
	routingPasses(p)
	reduceCrossings(p)
	pixelSnap(p)
	reanchor(p, shapes, offsetX, offsetY)

	count, _ := countCrossings(e.reg)
	e.logger.Debug("layout complete", "elements", len(shapes), "crossings", count)
	return nil
}

// LayoutSubset runs the reduced pipeline over the given element ids plus
// their linked artifacts. Only routes crossing the subset boundary are
// rebuilt; connections fully outside the subset are untouched. Returns the
// residual crossing diagnostics.
func (e *Engine) LayoutSubset(ctx context.Context, ids []string, opts Options) (Diagnostics, error) {
	p := e.newPassContext(opts)
	p.exception = discoverExceptionChains(p, opts.Container)

	inSubset := make(map[string]bool, len(ids))
	var shapes []*model.Element
	for _, id := range ids {
		el := e.reg.Get(id)
		if el == nil || el.IsContainer() {
			continue
		}
		inSubset[el.ID] = true
		if !el.IsBoundary() && !el.IsArtifact() {
			shapes = append(shapes, el)
		}
	}
	// Linked artifacts ride along with the subset.
	for _, a := range e.reg.Filter(func(el *model.Element) bool { return el.IsArtifact() }) {
		for _, n := range append(a.IncomingSources(), a.OutgoingTargets()...) {
			if inSubset[n.ID] {
				inSubset[a.ID] = true
				break
			}
		}
	}
	if len(shapes) < 2 {
		count, pairs := countCrossings(e.reg)
		return Diagnostics{CrossingCount: count, CrossingPairs: pairs}, nil
	}

	offsetX, offsetY := topLeft(shapes)
	res, err := e.solver.Solve(ctx, e.buildSolverGraph(p, shapes), e.solverOptions(opts))
	if err != nil {
		return Diagnostics{}, fmt.Errorf("solve subset layout: %w", err)
	}
	applySolverResult(p, res, offsetX, offsetY)

	layers := clusterLayers(shapes, e.cfg)
	snapGrid(p, layers)
	boundaryPass(p, false)
	rebuildBoundaryRoutes(p, inSubset)
	simplifyRoutes(p)

	count, pairs := countCrossings(e.reg)
	e.logger.Debug("subset layout complete", "elements", len(shapes), "crossings", count)
	return Diagnostics{CrossingCount: count, CrossingPairs: pairs}, nil
}

// rebuildBoundaryRoutes rewires every connection with exactly one endpoint
// inside the subset; interior and exterior routes are left to the regular
// repair passes.
func rebuildBoundaryRoutes(p *passContext, inSubset map[string]bool) {
	for _, c := range p.reg.Connections() {
		if c.Source == nil || c.Target == nil {
			continue
		}
		srcIn, dstIn := inSubset[c.Source.ID], inSubset[c.Target.ID]
		if srcIn == dstIn {
			continue
		}
		sb, tb := c.Source.Bounds, c.Target.Bounds
		if math.Abs(sb.CenterY()-tb.CenterY()) <= p.cfg.CenterSnapTolerance {
			p.mut.UpdateWaypoints(c, straightRoute(sb, tb))
		} else {
			p.mut.UpdateWaypoints(c, zRoute(sb, tb))
		}
	}
}

// solverShapes returns the elements handed to the solver: the container's
// direct flow shapes, minus exception-chain members, which are placed
// manually so they don't produce spurious extra columns.
func (e *Engine) solverShapes(p *passContext, container *model.Element) []*model.Element {
	return e.reg.Filter(func(el *model.Element) bool {
		return el.Parent == container &&
			!el.IsContainer() && !el.IsBoundary() && !el.IsArtifact() &&
			!p.exception[el.ID]
	})
}

func (e *Engine) buildSolverGraph(p *passContext, shapes []*model.Element) solver.Graph {
	included := make(map[string]bool, len(shapes))
	g := solver.Graph{Nodes: make([]solver.NodeSpec, 0, len(shapes))}
	for _, el := range shapes {
		w, h := el.Bounds.Width, el.Bounds.Height
		if w == 0 || h == 0 {
			w, h = e.cfg.nominalSize(sizeClass(el.Category))
		}
		g.Nodes = append(g.Nodes, solver.NodeSpec{ID: el.ID, Width: w, Height: h})
		included[el.ID] = true
	}
	for _, c := range e.reg.Connections() {
		if c.Source != nil && c.Target != nil && included[c.Source.ID] && included[c.Target.ID] {
			g.Edges = append(g.Edges, solver.EdgeSpec{ID: c.ID, Source: c.Source.ID, Target: c.Target.ID})
		}
	}
	return g
}

func (e *Engine) solverOptions(opts Options) solver.Options {
	if opts.Spacing != nil {
		return *opts.Spacing
	}
	return solver.Options{
		LayerSpacing:  e.cfg.BaseSpacing,
		NodeSpacing:   e.cfg.NodeSpacing,
		Routing:       "orthogonal",
		NodePlacement: "simple",
		Crossings:     "layer-sweep",
		CycleBreaking: "greedy",
	}
}

func sizeClass(cat model.Category) categorySize {
	switch cat {
	case model.CategoryGateway:
		return sizeGateway
	case model.CategoryArtifact:
		return sizeArtifact
	default:
		if cat.IsEvent() {
			return sizeEvent
		}
		return sizeTask
	}
}

func topLeft(shapes []*model.Element) (x, y float64) {
	x, y = math.Inf(1), math.Inf(1)
	for _, el := range shapes {
		x = math.Min(x, el.Bounds.X)
		y = math.Min(y, el.Bounds.Y)
	}
	return x, y
}

// reanchor translates the refined scope back so its top-left corner matches
// where the diagram sat before the run. The pipeline's snapping passes drift
// the corner by a constant amount per run; without this correction every
// re-run would translate the whole diagram instead of reproducing it. The
// delta is kept on the pixel grid so the snap pass's rounding survives.
func reanchor(p *passContext, shapes []*model.Element, origX, origY float64) {
	newX, newY := topLeft(shapes)
	dx, dy := origX-newX, origY-newY
	if grid := p.cfg.PixelGrid; grid > 0 {
		dx = quantize(dx, grid)
		dy = quantize(dy, grid)
	}
	if dx == 0 && dy == 0 {
		return
	}
	p.mut.MoveElements(p.reg.Children(p.container), dx, dy)
	for _, c := range p.reg.Connections() {
		if c.Source == nil || c.Source.Parent != p.container {
			continue
		}
		pts := make([]model.Point, len(c.Waypoints))
		for i, wp := range c.Waypoints {
			pts[i] = model.Point{X: wp.X + dx, Y: wp.Y + dy}
		}
		p.mut.UpdateWaypoints(c, pts)
	}
}
