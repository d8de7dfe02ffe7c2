package refine

import (
	"math"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// pixelSnap quantizes shape positions and interior waypoints to the
// configured pixel grid. It runs last: every earlier pass works on exact
// coordinates, and the final rounding is small enough not to violate the
// invariants they established.
//
// Vertical rounding is shared per column: every element in a column moves by
// the delta that puts the topmost member on the grid. Rounding each shape
// independently would let half-grid positions round in opposite directions
// and distort the vertical gaps the alignment passes just established.
//
// Attached trigger nodes are skipped - rounding would pull them off their
// host border. Route endpoints are likewise skipped so they stay docked on
// element boundaries.
func pixelSnap(p *passContext) {
	grid := p.cfg.PixelGrid
	if grid <= 0 {
		return
	}

	shapes := p.reg.Filter(func(e *model.Element) bool {
		return !e.IsBoundary() && !e.IsContainer()
	})
	for _, group := range columnGroups(p, shapes) {
		top := group[0]
		for _, e := range group[1:] {
			if e.Bounds.Y < top.Bounds.Y {
				top = e
			}
		}
		dy := quantize(top.Bounds.Y, grid) - top.Bounds.Y
		for _, e := range group {
			dx := quantize(e.Bounds.X, grid) - e.Bounds.X
			if dx != 0 || dy != 0 {
				p.mut.MoveElements([]*model.Element{e}, dx, dy)
			}
		}
	}

	for _, c := range p.reg.Connections() {
		if len(c.Waypoints) <= 2 {
			continue
		}
		pts := append([]model.Point(nil), c.Waypoints...)
		changed := false
		for i := 1; i < len(pts)-1; i++ {
			qx, qy := quantize(pts[i].X, grid), quantize(pts[i].Y, grid)
			if qx != pts[i].X || qy != pts[i].Y {
				pts[i] = model.Point{X: qx, Y: qy}
				changed = true
			}
		}
		if changed {
			p.mut.UpdateWaypoints(c, pts)
		}
	}
}

// columnGroups buckets shapes that share a parent and an x-column, using the
// same centre threshold as layer detection.
func columnGroups(p *passContext, shapes []*model.Element) [][]*model.Element {
	threshold := p.cfg.LayerThreshold()
	var groups [][]*model.Element
	for _, e := range shapes {
		placed := false
		for i, g := range groups {
			if g[0].Parent == e.Parent &&
				math.Abs(g[0].Bounds.CenterX()-e.Bounds.CenterX()) <= threshold {
				groups[i] = append(g, e)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*model.Element{e})
		}
	}
	return groups
}

func quantize(v, grid float64) float64 {
	return math.Round(v/grid) * grid
}
