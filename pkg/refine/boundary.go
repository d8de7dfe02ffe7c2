package refine

import (
	"math"
	"slices"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// Border identifies one edge of a host element's rectangle.
type Border int

const (
	BorderTop Border = iota
	BorderBottom
	BorderLeft
	BorderRight
)

// String returns the border name for logging.
func (b Border) String() string {
	switch b {
	case BorderTop:
		return "top"
	case BorderBottom:
		return "bottom"
	case BorderLeft:
		return "left"
	default:
		return "right"
	}
}

// boundaryPass repositions every attached trigger node onto its chosen host
// border, spreads triggers sharing a border, places exception chains beneath
// their hosts, and applies the post-placement corrections. When force is
// true every trigger is re-anchored even if it already sits within the
// proximity tolerance - the full-diagram pipeline always forces, because the
// solver output ignores attachments entirely.
func boundaryPass(p *passContext, force bool) {
	triggers := p.reg.Filter(func(e *model.Element) bool { return e.IsBoundary() && e.Host != nil })
	for _, trigger := range triggers {
		repositionTrigger(p, trigger, force)
	}
	spreadTriggers(p, triggers)
	placeExceptionChains(p)
	correctSubflowPlacement(p)
}

// detectCurrentBorder picks whichever host edge is nearest the node's centre.
func detectCurrentBorder(node, host *model.Element) Border {
	c := node.Center()
	hb := host.Bounds
	dist := map[Border]float64{
		BorderTop:    math.Abs(c.Y - hb.Y),
		BorderBottom: math.Abs(c.Y - hb.Bottom()),
		BorderLeft:   math.Abs(c.X - hb.X),
		BorderRight:  math.Abs(c.X - hb.Right()),
	}
	best := BorderBottom
	for _, b := range []Border{BorderTop, BorderLeft, BorderRight} {
		if dist[b] < dist[best] {
			best = b
		}
	}
	return best
}

// chooseBoundaryBorder selects the border a trigger should sit on. The
// convention is bottom: exception flows exit downward. Top is chosen only
// when the trigger's single outgoing target is clearly above the host, left
// only when the target is clearly to the left (a loop back into earlier
// flow). Right is never chosen - a solver artifact can park a same-row
// target to the right and would otherwise force a false "right" pick.
func chooseBoundaryBorder(node, host *model.Element) Border {
	targets := node.OutgoingTargets()
	if len(targets) != 1 {
		return BorderBottom
	}
	t := targets[0]
	dx := t.Bounds.CenterX() - host.Bounds.CenterX()
	dy := t.Bounds.CenterY() - host.Bounds.CenterY()
	if math.Abs(dy) > math.Abs(dx) && dy < 0 {
		return BorderTop
	}
	if math.Abs(dx) > math.Abs(dy) && dx < 0 {
		return BorderLeft
	}
	return BorderBottom
}

// borderAnchor returns the point on the given border where a trigger's
// centre belongs, before spreading.
func borderAnchor(host *model.Element, border Border) model.Point {
	hb := host.Bounds
	switch border {
	case BorderTop:
		return model.Point{X: hb.CenterX(), Y: hb.Y}
	case BorderBottom:
		return model.Point{X: hb.CenterX(), Y: hb.Bottom()}
	case BorderLeft:
		return model.Point{X: hb.X, Y: hb.CenterY()}
	default:
		return model.Point{X: hb.Right(), Y: hb.CenterY()}
	}
}

// repositionTrigger moves a trigger onto its chosen border when forced or
// when its centre has drifted outside the proximity tolerance of the host's
// bounds. The move goes through the mutator like every other pass; the label
// travels with the shape.
func repositionTrigger(p *passContext, trigger *model.Element, force bool) {
	host := trigger.Host
	center := trigger.Center()
	if !force && host.Bounds.DistanceToBoundary(center) <= p.cfg.BoundaryProximity {
		return
	}
	anchor := borderAnchor(host, chooseBoundaryBorder(trigger, host))
	p.moveBy(trigger, anchor.X-center.X, anchor.Y-center.Y)
}

// spreadTriggers distributes triggers sharing a (host, border) pair evenly
// across the middle of that border, keeping a margin at each end and
// preserving their existing relative order.
func spreadTriggers(p *passContext, triggers []*model.Element) {
	type key struct {
		host   *model.Element
		border Border
	}
	groups := make(map[key][]*model.Element)
	for _, t := range triggers {
		k := key{t.Host, detectCurrentBorder(t, t.Host)}
		groups[k] = append(groups[k], t)
	}

	for k, group := range groups {
		if len(group) < 2 {
			continue
		}
		horizontal := k.border == BorderTop || k.border == BorderBottom
		slices.SortStableFunc(group, func(a, b *model.Element) int {
			av, bv := a.Bounds.CenterX(), b.Bounds.CenterX()
			if !horizontal {
				av, bv = a.Bounds.CenterY(), b.Bounds.CenterY()
			}
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		})

		hb := k.host.Bounds
		length := hb.Width
		start := hb.X
		if !horizontal {
			length = hb.Height
			start = hb.Y
		}
		margin := length * p.cfg.BorderSpreadMargin
		usable := length - 2*margin
		step := usable / float64(len(group)-1)
		for i, t := range group {
			pos := start + margin + step*float64(i)
			if horizontal {
				p.moveBy(t, pos-t.Bounds.CenterX(), 0)
			} else {
				p.moveBy(t, 0, pos-t.Bounds.CenterY())
			}
		}
	}
}

// discoverExceptionChains computes the set of element ids reachable only
// through attached trigger nodes: an element joins the chain when every one
// of its incoming connections originates from a boundary event or from
// another chain member. The fix-point is monotone over a finite candidate
// set and iteration is bounded by the node count, so termination is
// structural rather than assumed. Child containers are recursed into.
//
// Happy-path elements never join the chain regardless of their incoming
// edges.
func discoverExceptionChains(p *passContext, container *model.Element) map[string]bool {
	chain := make(map[string]bool)
	candidates := p.reg.Filter(func(e *model.Element) bool {
		return e.Parent == container && !e.IsBoundary() && !e.IsContainer() && !e.IsArtifact()
	})

	for range candidates {
		changed := false
		for _, e := range candidates {
			if chain[e.ID] || p.isHappy(e) || len(e.Incoming) == 0 {
				continue
			}
			all := true
			for _, conn := range e.Incoming {
				src := conn.Source
				if src == nil || (!src.IsBoundary() && !chain[src.ID]) {
					all = false
					break
				}
			}
			if all {
				chain[e.ID] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, child := range p.reg.Children(container) {
		if child.IsContainer() {
			for id := range discoverExceptionChains(p, child) {
				chain[id] = true
			}
		}
	}
	return chain
}

// placeExceptionChains positions every exception chain manually: the chain
// head sits below the host at a fixed offset from its trigger's centre,
// later members run left to right with the standard gap, and multiple
// chains on one host stack with an extra vertical offset per chain.
func placeExceptionChains(p *passContext) {
	hosts := p.reg.Filter(func(e *model.Element) bool { return len(p.reg.BoundaryEvents(e)) > 0 })
	for _, host := range hosts {
		for idx, trigger := range p.reg.BoundaryEvents(host) {
			rowY := trigger.Bounds.CenterY() + p.cfg.ExceptionRowOffset + float64(idx)*p.cfg.ExceptionStackGap
			placeChainRow(p, trigger, rowY)
		}
	}
}

// placeChainRow walks a trigger's downstream chain members in breadth-first
// order and lays them on one row starting under the trigger.
func placeChainRow(p *passContext, trigger *model.Element, rowY float64) {
	x := trigger.Bounds.CenterX()
	visited := map[*model.Element]bool{trigger: true}
	queue := []*model.Element{trigger}
	first := true

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range curr.OutgoingTargets() {
			if visited[next] || !p.isException(next) {
				continue
			}
			visited[next] = true

			var targetX float64
			if first {
				targetX = x - next.Bounds.Width/2
				first = false
			} else {
				targetX = x + p.cfg.ExceptionChainGap
			}
			p.moveBy(next, targetX-next.Bounds.X, rowY-next.Bounds.CenterY())
			x = next.Bounds.X + next.Bounds.Width
			queue = append(queue, next)
		}
	}
}

// correctSubflowPlacement applies the two post-placement fixes: off-path end
// events caught between the primary flow and the exception row are pushed
// down onto the exception row, and exception targets that a solver artifact
// left above the primary flow are mirrored below it together with their
// downstream off-path chain.
func correctSubflowPlacement(p *passContext) {
	for _, trigger := range p.reg.Filter(func(e *model.Element) bool { return e.IsBoundary() && e.Host != nil }) {
		host := trigger.Host
		hostY := host.Bounds.CenterY()

		heads := chainHeads(p, trigger)
		for _, head := range heads {
			rowY := head.Bounds.CenterY()

			// Mirror chains stranded above the primary flow.
			if rowY < hostY {
				delta := 2 * (hostY - rowY)
				moveDownstreamOffPath(p, head, delta)
				rowY = head.Bounds.CenterY()
			}

			// Push stranded off-path end events down onto the exception row.
			for _, ee := range downstreamEndEvents(p, head) {
				cy := ee.Bounds.CenterY()
				if cy > hostY && cy < rowY {
					p.moveBy(ee, 0, rowY-cy)
				}
			}
		}
	}
}

func chainHeads(p *passContext, trigger *model.Element) []*model.Element {
	var heads []*model.Element
	for _, t := range trigger.OutgoingTargets() {
		if p.isException(t) {
			heads = append(heads, t)
		}
	}
	return heads
}

// moveDownstreamOffPath shifts an element and its entire downstream off-path
// chain by the same vertical delta.
func moveDownstreamOffPath(p *passContext, head *model.Element, delta float64) {
	visited := make(map[*model.Element]bool)
	queue := []*model.Element{head}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if visited[curr] || p.isHappy(curr) {
			continue
		}
		visited[curr] = true
		p.moveBy(curr, 0, delta)
		queue = append(queue, curr.OutgoingTargets()...)
	}
}

func downstreamEndEvents(p *passContext, head *model.Element) []*model.Element {
	var out []*model.Element
	visited := make(map[*model.Element]bool)
	queue := []*model.Element{head}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if visited[curr] {
			continue
		}
		visited[curr] = true
		if curr.Category == model.CategoryEndEvent {
			out = append(out, curr)
			continue
		}
		queue = append(queue, curr.OutgoingTargets()...)
	}
	return out
}
