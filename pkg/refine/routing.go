package refine

import (
	"math"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// routingPasses repairs every route invalidated by the placement passes.
// Each sub-pass scans all connections and touches only those failing its
// check, so the sequence is safe to re-run: a clean diagram passes through
// unchanged.
func routingPasses(p *passContext) {
	repairDisconnected(p)
	snapCenterlines(p)
	rebuildOffRowGatewayRoutes(p)
	separateOverlappingFlows(p)
	routeLoopbacks(p)
	simplifyRoutes(p)
}

// repairDisconnected rebuilds routes whose endpoints drifted off their
// element boundaries. Same-row pairs get a straight two-point line,
// different-row pairs an explicit Z-bend through the column midpoint, and
// anything else a local endpoint nudge that keeps the adjacent segment
// orthogonal.
func repairDisconnected(p *passContext) {
	for _, c := range p.reg.Connections() {
		if c.Source == nil || c.Target == nil {
			continue
		}
		srcDrift := c.Source.Bounds.DistanceToBoundary(c.FirstWaypoint())
		dstDrift := c.Target.Bounds.DistanceToBoundary(c.LastWaypoint())
		if srcDrift <= p.cfg.DisconnectTolerance && dstDrift <= p.cfg.DisconnectTolerance {
			continue
		}

		sb, tb := c.Source.Bounds, c.Target.Bounds
		switch {
		case math.Abs(sb.CenterY()-tb.CenterY()) <= p.cfg.CenterSnapTolerance:
			p.mut.UpdateWaypoints(c, straightRoute(sb, tb))
		case srcDrift > p.cfg.DisconnectTolerance && dstDrift > p.cfg.DisconnectTolerance:
			p.mut.UpdateWaypoints(c, zRoute(sb, tb))
		default:
			p.mut.UpdateWaypoints(c, nudgeEndpoints(c, p.cfg.DisconnectTolerance))
		}
	}
}

// straightRoute returns the horizontal two-point route between facing edges.
func straightRoute(src, dst model.Bounds) []model.Point {
	y := src.CenterY()
	if src.CenterX() <= dst.CenterX() {
		return []model.Point{{X: src.Right(), Y: y}, {X: dst.X, Y: y}}
	}
	return []model.Point{{X: src.X, Y: y}, {X: dst.Right(), Y: y}}
}

// zRoute returns the canonical four-point bend between different rows,
// turning at the horizontal midpoint between the two shapes.
func zRoute(src, dst model.Bounds) []model.Point {
	if src.CenterX() <= dst.CenterX() {
		midX := (src.Right() + dst.X) / 2
		return []model.Point{
			{X: src.Right(), Y: src.CenterY()},
			{X: midX, Y: src.CenterY()},
			{X: midX, Y: dst.CenterY()},
			{X: dst.X, Y: dst.CenterY()},
		}
	}
	midX := (dst.Right() + src.X) / 2
	return []model.Point{
		{X: src.X, Y: src.CenterY()},
		{X: midX, Y: src.CenterY()},
		{X: midX, Y: dst.CenterY()},
		{X: dst.Right(), Y: dst.CenterY()},
	}
}

// nudgeEndpoints moves a drifted endpoint onto its element boundary and
// shifts the adjacent waypoint so the neighbouring segment stays orthogonal.
func nudgeEndpoints(c *model.Connection, tolerance float64) []model.Point {
	pts := append([]model.Point(nil), c.Waypoints...)
	if len(pts) < 2 {
		return zRoute(c.Source.Bounds, c.Target.Bounds)
	}

	if c.Source.Bounds.DistanceToBoundary(pts[0]) > tolerance {
		anchor := nearestBoundaryPoint(c.Source.Bounds, pts[1])
		alignAdjacent(&pts[1], pts[0], anchor)
		pts[0] = anchor
	}
	last := len(pts) - 1
	if c.Target.Bounds.DistanceToBoundary(pts[last]) > tolerance {
		anchor := nearestBoundaryPoint(c.Target.Bounds, pts[last-1])
		alignAdjacent(&pts[last-1], pts[last], anchor)
		pts[last] = anchor
	}
	return pts
}

// alignAdjacent keeps the segment between the endpoint and its neighbour
// axis-aligned when the endpoint moves to anchor.
func alignAdjacent(neighbor *model.Point, old, anchor model.Point) {
	if math.Abs(neighbor.X-old.X) < math.Abs(neighbor.Y-old.Y) {
		neighbor.X = anchor.X // segment was vertical
	} else {
		neighbor.Y = anchor.Y // segment was horizontal
	}
}

// nearestBoundaryPoint projects p onto the nearest edge of b.
func nearestBoundaryPoint(b model.Bounds, p model.Point) model.Point {
	x := math.Max(b.X, math.Min(p.X, b.Right()))
	y := math.Max(b.Y, math.Min(p.Y, b.Bottom()))
	// Clamp landed inside: push to the closest edge.
	dLeft, dRight := x-b.X, b.Right()-x
	dTop, dBottom := y-b.Y, b.Bottom()-y
	min := math.Min(math.Min(dLeft, dRight), math.Min(dTop, dBottom))
	switch min {
	case dLeft:
		x = b.X
	case dRight:
		x = b.Right()
	case dTop:
		y = b.Y
	default:
		y = b.Bottom()
	}
	return model.Point{X: x, Y: y}
}

// snapCenterlines pulls route endpoints onto the source/target centre line
// when they are within tolerance, propagating to the adjacent waypoint to
// keep segments orthogonal. Horizontal flows snap y; vertical flows snap x.
func snapCenterlines(p *passContext) {
	tol := p.cfg.CenterSnapTolerance
	for _, c := range p.reg.Connections() {
		if c.Source == nil || c.Target == nil || len(c.Waypoints) < 2 {
			continue
		}
		pts := append([]model.Point(nil), c.Waypoints...)
		changed := false

		if isMostlyHorizontal(pts) {
			changed = snapAxis(pts, 0, 1, c.Source.Bounds.CenterY(), tol, false) || changed
			last := len(pts) - 1
			changed = snapAxis(pts, last, last-1, c.Target.Bounds.CenterY(), tol, false) || changed
		} else {
			changed = snapAxis(pts, 0, 1, c.Source.Bounds.CenterX(), tol, true) || changed
			last := len(pts) - 1
			changed = snapAxis(pts, last, last-1, c.Target.Bounds.CenterX(), tol, true) || changed
		}
		if changed {
			p.mut.UpdateWaypoints(c, pts)
		}
	}
}

func isMostlyHorizontal(pts []model.Point) bool {
	first, last := pts[0], pts[len(pts)-1]
	return math.Abs(last.X-first.X) >= math.Abs(last.Y-first.Y)
}

// snapAxis snaps one endpoint's cross-axis coordinate to the centre value
// and drags the adjacent waypoint with it when they shared the coordinate.
func snapAxis(pts []model.Point, end, adjacent int, center, tol float64, xAxis bool) bool {
	get := func(pt *model.Point) *float64 {
		if xAxis {
			return &pt.X
		}
		return &pt.Y
	}
	v := get(&pts[end])
	if *v == center || math.Abs(*v-center) > tol {
		return false
	}
	if adj := get(&pts[adjacent]); *adj == *v {
		*adj = center
	}
	*v = center
	return true
}

// rebuildOffRowGatewayRoutes rewrites flows between a gateway and a
// neighbour on a different row as a canonical three-point bend that leaves
// or enters the gateway through its top or bottom edge. Gateways route
// vertically before turning; they never exit through a side at an offset
// row.
func rebuildOffRowGatewayRoutes(p *passContext) {
	tol := p.cfg.CenterSnapTolerance
	for _, c := range p.reg.Connections() {
		if c.Source == nil || c.Target == nil {
			continue
		}
		sb, tb := c.Source.Bounds, c.Target.Bounds
		if math.Abs(sb.CenterY()-tb.CenterY()) <= tol {
			continue
		}
		switch {
		case c.Source.Category == model.CategoryGateway && c.Target.Category == model.CategoryGateway:
			// Both endpoints route vertically: leave the source through its
			// top or bottom, run across at the midpoint, and enter the target
			// through its facing border.
			sx, tx := sb.CenterX(), tb.CenterX()
			sy, ty := sb.Bottom(), tb.Y
			if tb.CenterY() < sb.CenterY() {
				sy, ty = sb.Y, tb.Bottom()
			}
			midY := (sy + ty) / 2
			route := []model.Point{
				{X: sx, Y: sy},
				{X: sx, Y: midY},
				{X: tx, Y: midY},
				{X: tx, Y: ty},
			}
			p.mut.UpdateWaypoints(c, route)
		case c.Source.Category == model.CategoryGateway:
			gx := sb.CenterX()
			gy := sb.Bottom()
			if tb.CenterY() < sb.CenterY() {
				gy = sb.Y
			}
			route := []model.Point{
				{X: gx, Y: gy},
				{X: gx, Y: tb.CenterY()},
				{X: dockX(tb, gx), Y: tb.CenterY()},
			}
			p.mut.UpdateWaypoints(c, route)
		case c.Target.Category == model.CategoryGateway:
			gx := tb.CenterX()
			gy := tb.Y
			if sb.CenterY() > tb.CenterY() {
				gy = tb.Bottom()
			}
			route := []model.Point{
				{X: dockX(sb, gx), Y: sb.CenterY()},
				{X: gx, Y: sb.CenterY()},
				{X: gx, Y: gy},
			}
			p.mut.UpdateWaypoints(c, route)
		}
	}
}

// dockX returns the x of the edge of b facing toward x.
func dockX(b model.Bounds, x float64) float64 {
	if x < b.CenterX() {
		return b.X
	}
	return b.Right()
}

// separateOverlappingFlows detours the longer of two flows leaving one
// gateway when they share a horizontal segment - the skip-ahead branch that
// bypasses an intermediate node would otherwise be drawn on top of its
// sibling.
func separateOverlappingFlows(p *passContext) {
	for _, gw := range p.scoped(model.CategoryGateway) {
		outs := gw.Outgoing
		for i := 0; i < len(outs); i++ {
			for j := i + 1; j < len(outs); j++ {
				a, b := outs[i], outs[j]
				if !horizontalOverlap(a, b, p.cfg.OrthoSnapTolerance) {
					continue
				}
				longer := a
				if b.Length() > a.Length() {
					longer = b
				}
				detourFlow(p, longer)
			}
		}
	}
}

// horizontalOverlap reports whether two routes share a horizontal segment at
// the same y with overlapping x ranges.
func horizontalOverlap(a, b *model.Connection, tol float64) bool {
	for _, sa := range horizontalSegments(a) {
		for _, sb := range horizontalSegments(b) {
			if math.Abs(sa.y-sb.y) <= tol &&
				math.Min(sa.x2, sb.x2)-math.Max(sa.x1, sb.x1) > 0 {
				return true
			}
		}
	}
	return false
}

type hSegment struct{ y, x1, x2 float64 }

func horizontalSegments(c *model.Connection) []hSegment {
	var segs []hSegment
	for i := 0; i < len(c.Waypoints)-1; i++ {
		a, b := c.Waypoints[i], c.Waypoints[i+1]
		if a.Y == b.Y {
			segs = append(segs, hSegment{y: a.Y, x1: math.Min(a.X, b.X), x2: math.Max(a.X, b.X)})
		}
	}
	return segs
}

// detourFlow pushes the route's longest horizontal segment down by the
// configured offset, inserting the connecting verticals.
func detourFlow(p *passContext, c *model.Connection) {
	pts := c.Waypoints
	if len(pts) < 2 {
		return
	}
	// Longest horizontal segment carries the detour.
	best, bestLen := -1, 0.0
	for i := 0; i < len(pts)-1; i++ {
		if pts[i].Y == pts[i+1].Y {
			if l := math.Abs(pts[i+1].X - pts[i].X); l > bestLen {
				best, bestLen = i, l
			}
		}
	}
	if best < 0 {
		return
	}

	y := pts[best].Y + p.cfg.OverlapDetour
	route := append([]model.Point(nil), pts[:best+1]...)
	route = append(route,
		model.Point{X: pts[best].X, Y: y},
		model.Point{X: pts[best+1].X, Y: y},
	)
	route = append(route, pts[best+1:]...)
	p.mut.UpdateWaypoints(c, route)
}

// routeLoopbacks rebuilds every backward flow as a U-shaped route dipping
// below the lowest element in the diagram, so back-edges never cut through
// the main flow area.
func routeLoopbacks(p *passContext) {
	lowest := math.Inf(-1)
	for _, e := range p.reg.All() {
		if e.IsContainer() {
			continue
		}
		lowest = math.Max(lowest, e.Bounds.Bottom())
	}
	if math.IsInf(lowest, -1) {
		return
	}
	clearY := lowest + p.cfg.LoopbackClearance

	for _, c := range p.reg.Connections() {
		if !c.IsBackward() {
			continue
		}
		sb, tb := c.Source.Bounds, c.Target.Bounds
		route := []model.Point{
			{X: sb.CenterX(), Y: sb.Bottom()},
			{X: sb.CenterX(), Y: clearY},
			{X: tb.CenterX(), Y: clearY},
			{X: tb.CenterX(), Y: tb.Bottom()},
		}
		p.mut.UpdateWaypoints(c, route)
	}
}

// simplifyRoutes removes micro-bend waypoints, collapses duplicate points,
// and forces nearly-straight segments exactly straight.
func simplifyRoutes(p *passContext) {
	for _, c := range p.reg.Connections() {
		pts := simplify(c.Waypoints, p.cfg.MicroBendTolerance)
		pts = snapOrthogonal(pts, p.cfg.OrthoSnapTolerance)
		if len(pts) != len(c.Waypoints) || !equalPoints(pts, c.Waypoints) {
			p.mut.UpdateWaypoints(c, pts)
		}
	}
}

// simplify drops interior waypoints that deviate from the line between
// their neighbours by less than tolerance on either axis, plus exact
// duplicates.
func simplify(pts []model.Point, tolerance float64) []model.Point {
	if len(pts) <= 2 {
		return pts
	}
	out := []model.Point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		prev := out[len(out)-1]
		curr, next := pts[i], pts[i+1]
		if curr == prev {
			continue
		}
		// Collinear horizontally or vertically within tolerance.
		if math.Abs(prev.Y-curr.Y) <= tolerance && math.Abs(curr.Y-next.Y) <= tolerance {
			continue
		}
		if math.Abs(prev.X-curr.X) <= tolerance && math.Abs(curr.X-next.X) <= tolerance {
			continue
		}
		out = append(out, curr)
	}
	return append(out, pts[len(pts)-1])
}

// snapOrthogonal zeroes the sub-tolerance axis delta of any almost-straight
// segment, leaving every segment strictly horizontal or vertical.
func snapOrthogonal(pts []model.Point, tolerance float64) []model.Point {
	out := append([]model.Point(nil), pts...)
	for i := 0; i < len(out)-1; i++ {
		dx := math.Abs(out[i+1].X - out[i].X)
		dy := math.Abs(out[i+1].Y - out[i].Y)
		if dx > 0 && dx <= tolerance && dy > dx {
			out[i+1].X = out[i].X
		} else if dy > 0 && dy <= tolerance && dx > dy {
			out[i+1].Y = out[i].Y
		}
	}
	return out
}

func equalPoints(a, b []model.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
