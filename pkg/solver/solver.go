// Package solver defines the boundary to the layered-graph-layout algorithm
// that assigns coarse positions before refinement.
//
// The refinement engine treats the solver as a black box: it hands over a
// node/edge graph with spacing options and consumes per-node positions and
// per-edge waypoint lists. [Layered] is a self-contained reference
// implementation so the module works stand-alone; callers integrating an
// external engine implement [Solver] themselves.
package solver

import (
	"context"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// NodeSpec describes one node handed to the solver.
type NodeSpec struct {
	ID     string
	Width  float64
	Height float64
	// Fixed pins the node to an absolute position. The solver must not move
	// pinned nodes.
	Fixed *model.Point
}

// EdgeSpec describes one directed edge handed to the solver.
type EdgeSpec struct {
	ID     string
	Source string
	Target string
}

// Graph is the solver's input: a flat node and edge list. It carries no
// geometry beyond node sizes; containers and boundary attachments are
// resolved by the caller before building the graph.
type Graph struct {
	Nodes []NodeSpec
	Edges []EdgeSpec
}

// Options are the named spacing and strategy knobs passed to the solver.
// Implementations may ignore strategies they do not support.
type Options struct {
	LayerSpacing    float64 // horizontal gap between layers
	NodeSpacing     float64 // vertical gap between nodes in a layer
	EdgeNodeSpacing float64 // clearance between edges and node borders

	Routing       string // e.g. "orthogonal"
	NodePlacement string // e.g. "simple", "brandes-koepf"
	Crossings     string // crossing-minimisation strategy, e.g. "layer-sweep"
	CycleBreaking string // e.g. "greedy"
}

// NodePosition is the solver's output for one node: the absolute top-left
// corner of its bounding box, plus the layer index it was assigned to.
type NodePosition struct {
	X     float64
	Y     float64
	Layer int
}

// Result carries the solver's output, keyed by the ids from the input graph.
// Edges without an entry get a route rebuilt by the refinement engine.
type Result struct {
	Nodes map[string]NodePosition
	Edges map[string][]model.Point
}

// Solver computes coarse positions for a layered graph. Implementations must
// be deterministic for identical inputs so the refinement pipeline stays
// idempotent across runs.
type Solver interface {
	Solve(ctx context.Context, g Graph, opts Options) (*Result, error)
}
