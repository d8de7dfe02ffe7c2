package refine

import (
	"math"
	"slices"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// Layer is a derived vertical column of elements sharing an approximate
// x-centre. Layers are ephemeral: every pass that needs them recomputes them
// from current geometry and discards them afterwards.
type Layer struct {
	Elements []*model.Element
	MinX     float64
	MaxRight float64
	MaxWidth float64
}

// CenterX returns the x-centre of the first member, which anchors the column.
func (l *Layer) CenterX() float64 {
	if len(l.Elements) == 0 {
		return 0
	}
	return l.Elements[0].Bounds.CenterX()
}

func (l *Layer) add(e *model.Element) {
	l.Elements = append(l.Elements, e)
	if len(l.Elements) == 1 {
		l.MinX = e.Bounds.X
		l.MaxRight = e.Bounds.Right()
		l.MaxWidth = e.Bounds.Width
		return
	}
	l.MinX = math.Min(l.MinX, e.Bounds.X)
	l.MaxRight = math.Max(l.MaxRight, e.Bounds.Right())
	l.MaxWidth = math.Max(l.MaxWidth, e.Bounds.Width)
}

// detectLayers clusters the direct children of container (or the top-level
// root when container is nil) into x-columns, ordered left to right.
//
// Shapes are sorted by x-centre and grouped greedily while the next shape's
// centre stays within the layer threshold of the group's first member. A
// candidate that is directly connected to a group member and separated by
// more than the connection guard forces a new layer even under the
// threshold: a source and its immediate target must never collapse into one
// column.
//
// Containers, boundary events, and artifacts are not layered - containers
// would mix nesting levels, boundary events belong to their host's column,
// and artifacts ride along with the elements they annotate.
func detectLayers(reg *model.Registry, container *model.Element, cfg Config) []*Layer {
	shapes := reg.Filter(func(e *model.Element) bool {
		return e.Parent == container && !e.IsContainer() && !e.IsBoundary() && !e.IsArtifact()
	})
	return clusterLayers(shapes, cfg)
}

// clusterLayers groups an arbitrary shape slice into layers. detectLayers
// handles the container scoping; the subset pipeline feeds its own selection
// in here directly.
func clusterLayers(shapes []*model.Element, cfg Config) []*Layer {
	if len(shapes) == 0 {
		return nil
	}
	shapes = append([]*model.Element(nil), shapes...)

	slices.SortStableFunc(shapes, func(a, b *model.Element) int {
		ax, bx := a.Bounds.CenterX(), b.Bounds.CenterX()
		switch {
		case ax < bx:
			return -1
		case ax > bx:
			return 1
		default:
			return 0
		}
	})

	threshold := cfg.LayerThreshold()
	var layers []*Layer
	current := &Layer{}
	current.add(shapes[0])

	for _, shape := range shapes[1:] {
		dx := shape.Bounds.CenterX() - current.CenterX()
		if dx <= threshold && !forcesSplit(shape, current, cfg.ConnectionGuard) {
			current.add(shape)
			continue
		}
		layers = append(layers, current)
		current = &Layer{}
		current.add(shape)
	}
	return append(layers, current)
}

// forcesSplit reports whether the candidate is directly connected to a member
// of the layer with meaningful x-separation. Such pairs are source and target
// of one flow and belong in consecutive columns, threshold or not.
func forcesSplit(candidate *model.Element, layer *Layer, guard float64) bool {
	for _, member := range layer.Elements {
		if candidate.ConnectedTo(member) &&
			math.Abs(candidate.Bounds.CenterX()-member.Bounds.CenterX()) > guard {
			return true
		}
	}
	return false
}

// layerFor returns the layer containing the element, or nil.
func layerFor(layers []*Layer, e *model.Element) *Layer {
	for _, l := range layers {
		if slices.Contains(l.Elements, e) {
			return l
		}
	}
	return nil
}
