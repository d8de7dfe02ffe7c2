package refine

import (
	"math"
	"slices"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// alignPasses runs the four vertical refinements in their required order:
// gateway centring, branch symmetrisation, boundary sub-flow end-event
// alignment, and happy-path straightening. Each assumes the grid snap has
// already established columns and rows.
func alignPasses(p *passContext, layers []*Layer) {
	centerGateways(p)
	symmetrizeBranches(p, layers)
	alignSubflowEndEvents(p)
	straightenHappyPath(p)
}

// centerGateways moves every off-path gateway to the vertical midpoint of
// its directly connected neighbours. Gateways with fewer than two neighbours
// are left alone to avoid pinning them to a single point.
func centerGateways(p *passContext) {
	for _, gw := range p.scoped(model.CategoryGateway) {
		if p.isHappy(gw) {
			continue
		}
		neighbors := connectedNeighbors(gw)
		if len(neighbors) < 2 {
			continue
		}
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, n := range neighbors {
			cy := n.Bounds.CenterY()
			minY = math.Min(minY, cy)
			maxY = math.Max(maxY, cy)
		}
		target := (minY + maxY) / 2
		p.moveBy(gw, 0, target-gw.Bounds.CenterY())
	}
}

func connectedNeighbors(e *model.Element) []*model.Element {
	var neighbors []*model.Element
	seen := make(map[*model.Element]bool)
	for _, n := range append(e.IncomingSources(), e.OutgoingTargets()...) {
		if n != e && !seen[n] {
			seen[n] = true
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// symmetrizeBranches balances the branch targets of every happy-path gateway
// with two or more outgoing flows whose non-gateway, non-end-event targets
// share a layer.
//
// With exactly one happy-path target, that target is pinned to the gateway's
// row and the other pushed immediately below. With both or neither on the
// happy path, the pair is distributed symmetrically above and below the
// gateway row. Off-path end-event targets of the same gateway snap to their
// immediate predecessor's row so they never dangle on a long connector.
func symmetrizeBranches(p *passContext, layers []*Layer) {
	for _, gw := range p.scoped(model.CategoryGateway) {
		if !p.isHappy(gw) || len(gw.Outgoing) < 2 {
			continue
		}

		var branch []*model.Element
		var endEvents []*model.Element
		for _, t := range gw.OutgoingTargets() {
			switch t.Category {
			case model.CategoryGateway:
				// Gateway chains are handled by centring.
			case model.CategoryEndEvent:
				if !p.isHappy(t) {
					endEvents = append(endEvents, t)
				}
			default:
				branch = append(branch, t)
			}
		}

		if len(branch) == 2 && sameLayer(layers, branch[0], branch[1]) {
			symmetrizePair(p, gw, branch[0], branch[1])
		}

		for _, ee := range endEvents {
			snapToPredecessorRow(p, ee)
		}
	}
}

func sameLayer(layers []*Layer, a, b *model.Element) bool {
	la := layerFor(layers, a)
	return la != nil && la == layerFor(layers, b)
}

func symmetrizePair(p *passContext, gw, a, b *model.Element) {
	gwY := gw.Bounds.CenterY()
	aHappy, bHappy := p.isHappy(a), p.isHappy(b)

	if aHappy != bHappy {
		happy, other := a, b
		if bHappy {
			happy, other = b, a
		}
		p.moveBy(happy, 0, gwY-happy.Bounds.CenterY())
		offset := math.Max(gw.Bounds.Height, other.Bounds.Height)/2 + p.cfg.NodeSpacing
		p.moveBy(other, 0, gwY+offset-other.Bounds.CenterY())
		return
	}

	// Both or neither on the happy path: spread symmetrically around the
	// gateway row, keeping the current vertical order.
	top, bottom := a, b
	if bottom.Bounds.CenterY() < top.Bounds.CenterY() {
		top, bottom = bottom, top
	}
	span := bottom.Bounds.CenterY() - top.Bounds.CenterY()
	tallest := math.Max(top.Bounds.Height, bottom.Bounds.Height)
	half := math.Max(span, p.cfg.NodeSpacing+tallest) / 2
	p.moveBy(top, 0, gwY-half-top.Bounds.CenterY())
	p.moveBy(bottom, 0, gwY+half-bottom.Bounds.CenterY())
}

func snapToPredecessorRow(p *passContext, e *model.Element) {
	sources := e.IncomingSources()
	if len(sources) == 0 {
		return
	}
	p.moveBy(e, 0, sources[0].Bounds.CenterY()-e.Bounds.CenterY())
}

// alignSubflowEndEvents walks breadth-first from every attached trigger node
// and aligns any terminal end event it reaches to the row of that event's
// immediate predecessor.
func alignSubflowEndEvents(p *passContext) {
	for _, trigger := range p.reg.Filter(func(e *model.Element) bool { return e.IsBoundary() }) {
		visited := map[*model.Element]bool{trigger: true}
		queue := []*model.Element{trigger}
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			for _, next := range curr.OutgoingTargets() {
				if visited[next] {
					continue
				}
				visited[next] = true
				if next.Category == model.CategoryEndEvent {
					p.moveBy(next, 0, curr.Bounds.CenterY()-next.Bounds.CenterY())
					continue
				}
				queue = append(queue, next)
			}
		}
	}
}

// straightenHappyPath snaps the primary flow onto one horizontal line.
//
// The reference row is the median y-centre of all happy-path elements
// (attached triggers, containers, and artifacts excluded). The correction
// radius governs row selection only: a majority of centres must agree with
// the median within it before the pass commits. Once a row is chosen, every
// happy-path element snaps to it - mixed shape heights leave small shapes and
// tall shapes with different centres after top-aligned solving, and a partial
// snap would split the flow across rows. Imported diagrams with widely
// varying coordinates get an extended radius, and when no majority exists at
// the raw median, the y-value with the most nearby agreement wins, ties
// broken toward the topmost candidate - exceptions descend below the main
// line by convention.
//
// Off-path elements sharing a column with a moved happy-path element are
// translated by the same delta to preserve relative row spacing. End events
// are excluded from that ride-along; their own passes place them.
func straightenHappyPath(p *passContext) {
	happy := p.reg.Filter(func(e *model.Element) bool {
		return p.isHappy(e) && !e.IsBoundary() && !e.IsContainer() && !e.IsArtifact()
	})
	if len(happy) < 2 {
		return
	}

	radius := p.cfg.WobbleTolerance
	if p.imported {
		radius = p.cfg.ImportCorrectionRadius
	}

	centers := make([]float64, len(happy))
	for i, e := range happy {
		centers[i] = e.Bounds.CenterY()
	}
	row := medianOf(centers)

	if agreement(centers, row, radius) <= len(happy)/2 {
		if !p.imported {
			return
		}
		row = bestAgreementRow(centers, radius)
	}

	for _, e := range happy {
		delta := row - e.Bounds.CenterY()
		if math.Abs(delta) < p.cfg.MovementThreshold {
			continue
		}
		p.moveBy(e, 0, delta)
		dragColumnNeighbors(p, e, delta)
	}
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func agreement(centers []float64, row, radius float64) int {
	count := 0
	for _, c := range centers {
		if math.Abs(c-row) <= radius {
			count++
		}
	}
	return count
}

// bestAgreementRow returns the candidate y with the most centres within the
// radius. Ties resolve to the smaller y.
func bestAgreementRow(centers []float64, radius float64) float64 {
	best, bestCount := centers[0], -1
	candidates := append([]float64(nil), centers...)
	slices.Sort(candidates)
	for _, candidate := range candidates {
		if count := agreement(centers, candidate, radius); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

// dragColumnNeighbors translates off-path elements sharing a column with the
// moved happy-path element by the same delta.
func dragColumnNeighbors(p *passContext, moved *model.Element, delta float64) {
	threshold := p.cfg.LayerThreshold()
	for _, e := range p.reg.Children(moved.Parent) {
		if e == moved || p.isHappy(e) ||
			e.Category == model.CategoryEndEvent || e.IsBoundary() || e.IsContainer() {
			continue
		}
		if math.Abs(e.Bounds.CenterX()-moved.Bounds.CenterX()) <= threshold {
			p.moveBy(e, 0, delta)
		}
	}
}
