package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/flowgrid/flowgrid/pkg/model"
)

// DOTOptions configures DOT export.
type DOTOptions struct {
	// Detailed includes element type and position in node labels.
	// When false, only the name (or id) is shown.
	Detailed bool
}

// ToDOT converts a diagram to Graphviz DOT format for interoperability
// with external tooling. FlowGrid's own coordinates are exported as pos
// attributes so Graphviz's neato engine can reproduce the refined layout.
func ToDOT(reg *model.Registry, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, e := range reg.All() {
		if e.IsContainer() {
			continue
		}
		label := fmtLabel(e, opts.Detailed)
		attrs := fmtAttrs(e, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", e.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range reg.Connections() {
		if c.Source == nil || c.Target == nil {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", c.Source.ID, c.Target.ID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(e *model.Element, detailed bool) string {
	label := e.Name
	if label == "" {
		label = e.ID
	}
	if !detailed {
		return label
	}
	return fmt.Sprintf("%s\n%s\n(%.0f, %.0f)", label, e.Category, e.Bounds.X, e.Bounds.Y)
}

func fmtAttrs(e *model.Element, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	// Graphviz pos is in points with y up; 72 points per inch.
	attrs = append(attrs, fmt.Sprintf("pos=\"%.1f,%.1f\"", e.Center().X, -e.Center().Y))

	switch e.Category {
	case model.CategoryGateway:
		attrs = append(attrs, "shape=diamond")
	case model.CategoryStartEvent, model.CategoryEndEvent, model.CategoryIntermediateEvent, model.CategoryBoundaryEvent:
		attrs = append(attrs, "shape=circle")
	case model.CategoryArtifact:
		attrs = append(attrs, "style=\"filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// RasterizeDOT renders a DOT graph to the given Graphviz format (SVG or
// PNG). Layout is delegated to Graphviz's dot engine.
func RasterizeDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPNG renders a diagram as PNG by exporting to DOT and rasterizing
// with Graphviz. For SVG output prefer [RenderSVG], which preserves the
// refined coordinates exactly.
func RenderPNG(ctx context.Context, reg *model.Registry, opts DOTOptions) ([]byte, error) {
	return RasterizeDOT(ctx, ToDOT(reg, opts), graphviz.PNG)
}
