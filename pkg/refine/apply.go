package refine

import (
	"github.com/flowgrid/flowgrid/pkg/model"
	"github.com/flowgrid/flowgrid/pkg/solver"
)

// applySolverResult writes the solver's output back into the registry,
// shifted by (offsetX, offsetY) so the refined diagram stays anchored where
// the original sat. Lookup misses are skipped: a stale id in the result must
// not fail the pipeline.
func applySolverResult(p *passContext, res *solver.Result, offsetX, offsetY float64) {
	for id, pos := range res.Nodes {
		e := p.reg.Get(id)
		if e == nil {
			continue
		}
		dx := pos.X + offsetX - e.Bounds.X
		dy := pos.Y + offsetY - e.Bounds.Y
		if dx != 0 || dy != 0 {
			p.mut.MoveElements([]*model.Element{e}, dx, dy)
		}
	}

	for id, waypoints := range res.Edges {
		c := p.reg.Connection(id)
		if c == nil || len(waypoints) == 0 {
			continue
		}
		shifted := make([]model.Point, len(waypoints))
		for i, wp := range waypoints {
			shifted[i] = model.Point{X: wp.X + offsetX, Y: wp.Y + offsetY}
		}
		p.mut.UpdateWaypoints(c, shifted)
	}
}
