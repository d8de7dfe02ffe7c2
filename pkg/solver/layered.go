package solver

import (
	"context"
	"errors"
	"slices"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// ErrEmptyGraph is returned by [Layered.Solve] when the graph has no nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// Layered is the built-in reference solver. It breaks cycles greedily,
// assigns layers with a longest-path topological sweep, orders each layer by
// the barycentre of its predecessors, and lays layers out left to right.
//
// It aims for a reasonable coarse arrangement, not for replicating any
// specific external engine - the refinement passes downstream do the visual
// polishing either way.
type Layered struct{}

// NewLayered creates the reference solver.
func NewLayered() *Layered { return &Layered{} }

// Solve computes positions for every node and two-point routes for every
// edge. Pinned nodes keep their position; unpinned nodes flow left to right
// by layer.
func (s *Layered) Solve(ctx context.Context, g Graph, opts Options) (*Result, error) {
	if len(g.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.LayerSpacing == 0 {
		opts.LayerSpacing = 80
	}
	if opts.NodeSpacing == 0 {
		opts.NodeSpacing = 60
	}

	nodes := make(map[string]*NodeSpec, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		nodes[n.ID] = n
		order = append(order, n.ID)
	}

	edges := dropCycleEdges(g.Edges, order)
	layers := assignLayers(order, edges)
	columns := buildColumns(layers, order)
	sortByBarycenter(columns, edges, layers)

	result := &Result{
		Nodes: make(map[string]NodePosition, len(g.Nodes)),
		Edges: make(map[string][]model.Point, len(g.Edges)),
	}

	// Column x positions: each column starts after the widest node of the
	// previous one plus the layer spacing.
	x := 0.0
	for li, col := range columns {
		maxWidth := 0.0
		for _, id := range col {
			if w := nodes[id].Width; w > maxWidth {
				maxWidth = w
			}
		}
		y := 0.0
		for _, id := range col {
			n := nodes[id]
			if n.Fixed != nil {
				result.Nodes[id] = NodePosition{X: n.Fixed.X, Y: n.Fixed.Y, Layer: li}
				continue
			}
			// Centre each node within the column's width.
			result.Nodes[id] = NodePosition{X: x + (maxWidth-n.Width)/2, Y: y, Layer: li}
			y += n.Height + opts.NodeSpacing
		}
		x += maxWidth + opts.LayerSpacing
	}

	// Straight two-point routes between node centres. The refinement
	// engine's routing repair re-bends them where rows differ.
	for _, e := range g.Edges {
		src, okS := result.Nodes[e.Source]
		dst, okD := result.Nodes[e.Target]
		if !okS || !okD {
			continue
		}
		sn, tn := nodes[e.Source], nodes[e.Target]
		result.Edges[e.ID] = []model.Point{
			{X: src.X + sn.Width/2, Y: src.Y + sn.Height/2},
			{X: dst.X + tn.Width/2, Y: dst.Y + tn.Height/2},
		}
	}

	return result, nil
}

// dropCycleEdges removes edges that close a cycle, found by DFS from every
// node in input order. The remaining edge set is acyclic.
func dropCycleEdges(edges []EdgeSpec, order []string) []EdgeSpec {
	out := make(map[string][]int)
	for i, e := range edges {
		out[e.Source] = append(out[e.Source], i)
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(order))
	drop := make(map[int]bool)

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, ei := range out[id] {
			target := edges[ei].Target
			switch color[target] {
			case white:
				dfs(target)
			case gray:
				drop[ei] = true // back edge
			}
		}
		color[id] = black
	}
	for _, id := range order {
		if color[id] == white {
			dfs(id)
		}
	}

	if len(drop) == 0 {
		return edges
	}
	kept := make([]EdgeSpec, 0, len(edges)-len(drop))
	for i, e := range edges {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	return kept
}

// assignLayers computes a longest-path layering via Kahn's algorithm. Nodes
// with no incoming edges land in layer 0; every other node sits one past its
// deepest predecessor.
func assignLayers(order []string, edges []EdgeSpec) map[string]int {
	inDegree := make(map[string]int, len(order))
	children := make(map[string][]string)
	for _, e := range edges {
		inDegree[e.Target]++
		children[e.Source] = append(children[e.Source], e.Target)
	}

	layers := make(map[string]int, len(order))
	queue := make([]string, 0, len(order))
	for _, id := range order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range children[curr] {
			if l := layers[curr] + 1; l > layers[child] {
				layers[child] = l
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return layers
}

// buildColumns groups node ids by layer, preserving input order within each
// column for determinism.
func buildColumns(layers map[string]int, order []string) [][]string {
	maxLayer := 0
	for _, l := range layers {
		if l > maxLayer {
			maxLayer = l
		}
	}
	columns := make([][]string, maxLayer+1)
	for _, id := range order {
		l := layers[id]
		columns[l] = append(columns[l], id)
	}
	return columns
}

// sortByBarycenter runs a single left-to-right sweep ordering each column by
// the mean position of its predecessors in the previous column.
func sortByBarycenter(columns [][]string, edges []EdgeSpec, layers map[string]int) {
	parents := make(map[string][]string)
	for _, e := range edges {
		parents[e.Target] = append(parents[e.Target], e.Source)
	}

	for i := 1; i < len(columns); i++ {
		prevPos := make(map[string]int, len(columns[i-1]))
		for p, id := range columns[i-1] {
			prevPos[id] = p
		}
		barycenter := func(id string) float64 {
			sum, count := 0.0, 0
			for _, p := range parents[id] {
				if pos, ok := prevPos[p]; ok {
					sum += float64(pos)
					count++
				}
			}
			if count == 0 {
				return float64(len(columns[i-1])) / 2
			}
			return sum / float64(count)
		}
		slices.SortStableFunc(columns[i], func(a, b string) int {
			ba, bb := barycenter(a), barycenter(b)
			switch {
			case ba < bb:
				return -1
			case ba > bb:
				return 1
			default:
				return 0
			}
		})
	}
}

// Ensure Layered implements Solver.
var _ Solver = (*Layered)(nil)
