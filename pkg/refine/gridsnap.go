package refine

import (
	"math"
	"slices"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// snapGrid re-columns the detected layers with category-aware gaps, then
// redistributes each layer's rows around the happy path. It runs after layer
// detection and before the alignment passes.
func snapGrid(p *passContext, layers []*Layer) {
	if len(layers) == 0 {
		return
	}
	snapColumns(p, layers)
	for _, layer := range layers {
		snapRows(p, layer)
	}
}

// snapColumns walks layers left to right. Each layer's column starts at the
// previous layer's right edge plus a gap derived from the dominant element
// categories of the two adjacent layers; layers hosting a boundary-event
// host get extra room for the exception sub-flow placed beneath them.
// Every element is horizontally centred within its layer's max width.
func snapColumns(p *passContext, layers []*Layer) {
	x := layers[0].MinX
	for i, layer := range layers {
		for _, e := range layer.Elements {
			targetX := x + (layer.MaxWidth-e.Bounds.Width)/2
			p.moveBy(e, targetX-e.Bounds.X, 0)
		}
		if i+1 < len(layers) {
			x += layer.MaxWidth + columnGap(p, layer, layers[i+1])
		}
	}
	// Column moves change rights/widths bookkeeping; refresh in place so the
	// row pass sees current geometry.
	for _, layer := range layers {
		refresh(layer)
	}
}

func refresh(l *Layer) {
	elements := l.Elements
	l.Elements = nil
	for _, e := range elements {
		l.add(e)
	}
}

// columnGap returns the horizontal gap between two adjacent layers: the base
// spacing adjusted for the dominant categories on both sides, widened when
// the left layer hosts attached trigger nodes.
func columnGap(p *passContext, left, right *Layer) float64 {
	gap := p.cfg.BaseSpacing + (categoryGapAdjust(p, left)+categoryGapAdjust(p, right))/2
	if hostsBoundaryEvents(p.reg, left) {
		gap += p.cfg.HostExtraGap
	}
	return gap
}

// categoryGapAdjust maps a layer's dominant category to its gap delta. Small
// shapes (events, gateways) get wider gaps so the spacing reads balanced
// next to full-size tasks.
func categoryGapAdjust(p *passContext, l *Layer) float64 {
	switch dominantCategory(l) {
	case model.CategoryIntermediateEvent:
		return p.cfg.IntermediateGapAdjust
	case model.CategoryStartEvent, model.CategoryEndEvent:
		return p.cfg.EventGapAdjust
	case model.CategoryGateway:
		return p.cfg.GatewayGapAdjust
	default:
		return 0
	}
}

// dominantCategory returns whichever of intermediate-event, start/end-event,
// gateway, or task accounts for at least half the layer's members, defaulting
// to task.
func dominantCategory(l *Layer) model.Category {
	if len(l.Elements) == 0 {
		return model.CategoryTask
	}
	counts := make(map[model.Category]int)
	for _, e := range l.Elements {
		switch e.Category {
		case model.CategoryIntermediateEvent:
			counts[model.CategoryIntermediateEvent]++
		case model.CategoryStartEvent, model.CategoryEndEvent:
			counts[model.CategoryStartEvent]++
		case model.CategoryGateway:
			counts[model.CategoryGateway]++
		default:
			counts[model.CategoryTask]++
		}
	}
	half := (len(l.Elements) + 1) / 2
	for _, cat := range []model.Category{
		model.CategoryIntermediateEvent,
		model.CategoryStartEvent,
		model.CategoryGateway,
	} {
		if counts[cat] >= half && counts[cat] > 0 {
			return cat
		}
	}
	return model.CategoryTask
}

func hostsBoundaryEvents(reg *model.Registry, l *Layer) bool {
	for _, e := range l.Elements {
		if len(reg.BoundaryEvents(e)) > 0 {
			return true
		}
	}
	return false
}

// snapRows redistributes one layer's elements vertically. A happy-path
// member pins the reference row and the rest stack above and below it;
// without one the layer is spread symmetrically around its existing centre.
func snapRows(p *passContext, layer *Layer) {
	elements := sortedByY(layer.Elements)
	if len(elements) < 2 {
		return
	}
	spacing := rowSpacing(p, elements)

	pivot := -1
	for i, e := range elements {
		if p.isHappy(e) {
			pivot = i
			break
		}
	}

	if pivot < 0 {
		spreadAround(p, elements, groupCenterY(elements), spacing)
		return
	}

	// Stack outward from the pinned happy-path element.
	anchor := elements[pivot].Bounds.CenterY()
	prev := anchor
	prevHalf := elements[pivot].Bounds.Height / 2
	for i := pivot + 1; i < len(elements); i++ {
		e := elements[i]
		target := prev + prevHalf + spacing + e.Bounds.Height/2
		p.moveBy(e, 0, target-e.Bounds.CenterY())
		prev = target
		prevHalf = e.Bounds.Height / 2
	}
	prev = anchor
	prevHalf = elements[pivot].Bounds.Height / 2
	for i := pivot - 1; i >= 0; i-- {
		e := elements[i]
		target := prev - prevHalf - spacing - e.Bounds.Height/2
		p.moveBy(e, 0, target-e.Bounds.CenterY())
		prev = target
		prevHalf = e.Bounds.Height / 2
	}
}

// rowSpacing picks the vertical gap for a layer: tightened for fork/join
// branch patterns and for rows mixing the primary flow with an exception
// sub-flow target, nominal otherwise.
func rowSpacing(p *passContext, elements []*model.Element) float64 {
	if sharesCommonGateway(elements) {
		return p.cfg.BranchSpacing
	}
	if mixesHappyAndException(p, elements) {
		return p.cfg.SubflowSpacing
	}
	return p.cfg.NodeSpacing
}

// sharesCommonGateway reports whether every element in the slice has one
// particular gateway among its direct sources or targets - the fork/join
// branch pattern.
func sharesCommonGateway(elements []*model.Element) bool {
	if len(elements) < 2 {
		return false
	}
	shared := make(map[*model.Element]int)
	for _, e := range elements {
		seen := make(map[*model.Element]bool)
		for _, n := range append(e.IncomingSources(), e.OutgoingTargets()...) {
			if n.Category == model.CategoryGateway && !seen[n] {
				seen[n] = true
				shared[n]++
			}
		}
	}
	for _, count := range shared {
		if count == len(elements) {
			return true
		}
	}
	return false
}

func mixesHappyAndException(p *passContext, elements []*model.Element) bool {
	hasHappy, hasException := false, false
	for _, e := range elements {
		if p.isHappy(e) {
			hasHappy = true
		}
		if p.isException(e) {
			hasException = true
		}
	}
	return hasHappy && hasException
}

// spreadAround distributes the elements vertically around centerY with even
// spacing, preserving their current top-to-bottom order.
func spreadAround(p *passContext, elements []*model.Element, centerY, spacing float64) {
	total := spacing * float64(len(elements)-1)
	for _, e := range elements {
		total += e.Bounds.Height
	}
	y := centerY - total/2
	for _, e := range elements {
		p.moveBy(e, 0, y-e.Bounds.Y)
		y += e.Bounds.Height + spacing
	}
}

func groupCenterY(elements []*model.Element) float64 {
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, e := range elements {
		minY = math.Min(minY, e.Bounds.Y)
		maxY = math.Max(maxY, e.Bounds.Bottom())
	}
	return (minY + maxY) / 2
}

func sortedByY(elements []*model.Element) []*model.Element {
	out := append([]*model.Element(nil), elements...)
	slices.SortStableFunc(out, func(a, b *model.Element) int {
		ay, by := a.Bounds.CenterY(), b.Bounds.CenterY()
		switch {
		case ay < by:
			return -1
		case ay > by:
			return 1
		default:
			return 0
		}
	})
	return out
}
