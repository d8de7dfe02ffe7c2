package refine

import (
	"math"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// CrossingPair identifies two connections whose routes intersect.
type CrossingPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// countCrossings returns the number of crossing connection pairs and the
// pairs themselves. Two routes cross when any segment of one intersects any
// segment of the other away from shared endpoints; connections sharing a
// source or target never count, since fan-in and fan-out legitimately touch.
func countCrossings(reg *model.Registry) (int, []CrossingPair) {
	conns := reg.Connections()
	var pairs []CrossingPair
	for i := 0; i < len(conns); i++ {
		for j := i + 1; j < len(conns); j++ {
			a, b := conns[i], conns[j]
			if sharesEndpoint(a, b) {
				continue
			}
			if routesIntersect(a.Waypoints, b.Waypoints) {
				pairs = append(pairs, CrossingPair{A: a.ID, B: b.ID})
			}
		}
	}
	return len(pairs), pairs
}

func sharesEndpoint(a, b *model.Connection) bool {
	return a.Source == b.Source || a.Source == b.Target ||
		a.Target == b.Source || a.Target == b.Target
}

func routesIntersect(a, b []model.Point) bool {
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect reports a proper crossing between two segments using
// orientation tests. Touching at a shared endpoint does not count.
func segmentsIntersect(p1, p2, q1, q2 model.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	return d1*d2 < 0 && d3*d4 < 0
}

func orientation(a, b, c model.Point) float64 {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

// reduceCrossings attempts local waypoint nudges on each crossing pair: the
// longest interior horizontal segment of one route is shifted up or down by
// half the node spacing and the move kept only when the total crossing count
// drops and the route stays orthogonal. Failures are rolled back; a failed
// attempt never aborts the pipeline.
//
// The scan is bounded to one pass over the initial pairs, so the reduction
// terminates even when no improvement is possible.
func reduceCrossings(p *passContext) {
	total, pairs := countCrossings(p.reg)
	if total == 0 {
		return
	}

	offsets := []float64{-p.cfg.NodeSpacing / 2, p.cfg.NodeSpacing / 2}
	for _, pair := range pairs {
		for _, id := range []string{pair.A, pair.B} {
			c := p.reg.Connection(id)
			if c == nil || len(c.Waypoints) < 4 {
				continue
			}
			if try := tryNudge(p, c, offsets, total); try < total {
				total = try
				break
			}
		}
	}
}

// tryNudge shifts the route's longest interior horizontal run by each
// candidate offset, keeping the first variant that reduces the global
// crossing count. Returns the resulting count (unchanged when every attempt
// was rolled back).
func tryNudge(p *passContext, c *model.Connection, offsets []float64, current int) int {
	original := append([]model.Point(nil), c.Waypoints...)

	for _, offset := range offsets {
		candidate := shiftInteriorRun(original, offset)
		if candidate == nil {
			return current
		}
		p.mut.UpdateWaypoints(c, candidate)
		if after, _ := countCrossings(p.reg); after < current && c.IsOrthogonal(p.cfg.OrthoSnapTolerance) {
			return after
		}
		p.mut.UpdateWaypoints(c, original)
	}
	return current
}

// shiftInteriorRun moves the longest horizontal segment strictly between the
// endpoints by dy, dragging its two bend points along. Returns nil when the
// route has no interior horizontal segment.
func shiftInteriorRun(pts []model.Point, dy float64) []model.Point {
	best, bestLen := -1, 0.0
	for i := 1; i < len(pts)-2; i++ {
		if pts[i].Y == pts[i+1].Y {
			if l := math.Abs(pts[i+1].X - pts[i].X); l > bestLen {
				best, bestLen = i, l
			}
		}
	}
	if best < 0 {
		return nil
	}
	out := append([]model.Point(nil), pts...)
	out[best].Y += dy
	out[best+1].Y += dy
	return out
}
