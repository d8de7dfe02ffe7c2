package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/flowgrid/flowgrid/pkg/model"
)

const framePadding = 40.0

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale      float64
	showLabels bool
	showGrid   bool
	gridStep   float64
}

// WithScale multiplies the output width and height. The viewBox is
// unchanged, so a scale of 2 produces a 2x resolution image.
func WithScale(s float64) SVGOption { return func(r *svgRenderer) { r.scale = s } }

// WithLabels renders element names inside their shapes.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.showLabels = true } }

// WithGrid draws a background grid at the given step, useful for
// inspecting snap behaviour.
func WithGrid(step float64) SVGOption {
	return func(r *svgRenderer) { r.showGrid = true; r.gridStep = step }
}

// RenderSVG renders all elements and connections of a registry as SVG.
// Containers are drawn first, then flows, then shapes, so nodes always sit
// on top of their connections.
func RenderSVG(reg *model.Registry, opts ...SVGOption) []byte {
	r := svgRenderer{scale: 1}
	for _, opt := range opts {
		opt(&r)
	}

	frame := frameBounds(reg)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		frame.X, frame.Y, frame.Width, frame.Height,
		frame.Width*r.scale, frame.Height*r.scale)
	buf.WriteString(arrowDefs)

	if r.showGrid && r.gridStep > 0 {
		renderGrid(&buf, frame, r.gridStep)
	}

	for _, e := range reg.All() {
		if e.IsContainer() {
			renderContainer(&buf, e)
		}
	}
	for _, c := range reg.Connections() {
		renderFlow(&buf, c)
	}
	for _, e := range reg.All() {
		if e.IsContainer() {
			continue
		}
		renderShape(&buf, e)
		if r.showLabels && e.Name != "" {
			renderLabel(&buf, e)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

const arrowDefs = `  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="7" markerHeight="7" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="#333"/>
    </marker>
  </defs>
`

// frameBounds computes the bounding box of every shape and waypoint,
// padded so strokes and markers are not clipped.
func frameBounds(reg *model.Registry) model.Bounds {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, e := range reg.All() {
		minX = math.Min(minX, e.Bounds.X)
		minY = math.Min(minY, e.Bounds.Y)
		maxX = math.Max(maxX, e.Bounds.Right())
		maxY = math.Max(maxY, e.Bounds.Bottom())
	}
	for _, c := range reg.Connections() {
		for _, wp := range c.Waypoints {
			minX = math.Min(minX, wp.X)
			minY = math.Min(minY, wp.Y)
			maxX = math.Max(maxX, wp.X)
			maxY = math.Max(maxY, wp.Y)
		}
	}

	if math.IsInf(minX, 1) {
		return model.Bounds{Width: framePadding * 2, Height: framePadding * 2}
	}
	return model.Bounds{
		X:      minX - framePadding,
		Y:      minY - framePadding,
		Width:  maxX - minX + 2*framePadding,
		Height: maxY - minY + 2*framePadding,
	}
}

func renderGrid(buf *bytes.Buffer, frame model.Bounds, step float64) {
	startX := math.Floor(frame.X/step) * step
	startY := math.Floor(frame.Y/step) * step
	for x := startX; x <= frame.Right(); x += step {
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#eee" stroke-width="0.5"/>`+"\n",
			x, frame.Y, x, frame.Bottom())
	}
	for y := startY; y <= frame.Bottom(); y += step {
		fmt.Fprintf(buf, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#eee" stroke-width="0.5"/>`+"\n",
			frame.X, y, frame.Right(), y)
	}
}

func renderContainer(buf *bytes.Buffer, e *model.Element) {
	fmt.Fprintf(buf, `  <rect id="shape-%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" fill="#fafafa" stroke="#999" stroke-width="1.5"/>`+"\n",
		e.ID, e.Bounds.X, e.Bounds.Y, e.Bounds.Width, e.Bounds.Height)
}

func renderFlow(buf *bytes.Buffer, c *model.Connection) {
	if len(c.Waypoints) < 2 {
		return
	}
	var pts bytes.Buffer
	for i, wp := range c.Waypoints {
		if i > 0 {
			pts.WriteByte(' ')
		}
		fmt.Fprintf(&pts, "%.1f,%.1f", wp.X, wp.Y)
	}
	fmt.Fprintf(buf, `  <polyline id="flow-%s" points="%s" fill="none" stroke="#333" stroke-width="1.5" marker-end="url(#arrow)"/>`+"\n",
		c.ID, pts.String())
}

func renderShape(buf *bytes.Buffer, e *model.Element) {
	b := e.Bounds
	switch e.Category {
	case model.CategoryStartEvent, model.CategoryEndEvent, model.CategoryIntermediateEvent, model.CategoryBoundaryEvent:
		width := 1.5
		if e.Category == model.CategoryEndEvent {
			width = 3
		}
		fmt.Fprintf(buf, `  <circle id="shape-%s" cx="%.1f" cy="%.1f" r="%.1f" fill="#fff" stroke="#333" stroke-width="%.1f"/>`+"\n",
			e.ID, b.CenterX(), b.CenterY(), b.Width/2, width)
		if e.Category == model.CategoryIntermediateEvent || e.Category == model.CategoryBoundaryEvent {
			fmt.Fprintf(buf, `  <circle cx="%.1f" cy="%.1f" r="%.1f" fill="none" stroke="#333" stroke-width="1"/>`+"\n",
				b.CenterX(), b.CenterY(), b.Width/2-3)
		}
	case model.CategoryGateway:
		fmt.Fprintf(buf, `  <polygon id="shape-%s" points="%.1f,%.1f %.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="#fff" stroke="#333" stroke-width="1.5"/>`+"\n",
			e.ID,
			b.CenterX(), b.Y,
			b.Right(), b.CenterY(),
			b.CenterX(), b.Bottom(),
			b.X, b.CenterY())
	case model.CategoryArtifact:
		fmt.Fprintf(buf, `  <rect id="shape-%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#fff" stroke="#666" stroke-width="1" stroke-dasharray="4 2"/>`+"\n",
			e.ID, b.X, b.Y, b.Width, b.Height)
	default:
		fmt.Fprintf(buf, `  <rect id="shape-%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="10" fill="#fff" stroke="#333" stroke-width="1.5"/>`+"\n",
			e.ID, b.X, b.Y, b.Width, b.Height)
	}
}

func renderLabel(buf *bytes.Buffer, e *model.Element) {
	x, y := e.Bounds.CenterX(), e.Bounds.CenterY()
	if e.Category != model.CategoryTask && e.Category != model.CategoryContainer {
		// Small symbols get their label underneath instead of inside.
		y = e.Bounds.Bottom() + 14
	}
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="12">%s</text>`+"\n",
		x, y, escapeText(e.Name))
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
