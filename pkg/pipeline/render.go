package pipeline

import (
	"context"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/render"
)

// RenderDiagram generates output artifacts in the requested formats.
// The diagram is drawn as-is; run Tidy first for refined output.
func RenderDiagram(ctx context.Context, d diagram.Diagram, opts Options) (map[string][]byte, error) {
	reg, err := diagram.ToRegistry(d)
	if err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = render.RenderSVG(reg, svgOptions(opts)...)
		case FormatPNG:
			data, err = render.RenderPNG(ctx, reg, dotOptions(opts))
		case FormatDOT:
			data = []byte(render.ToDOT(reg, dotOptions(opts)))
		case FormatJSON:
			data, err = diagram.Marshal(d)
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// svgOptions builds SVG rendering options.
func svgOptions(opts Options) []render.SVGOption {
	svgOpts := []render.SVGOption{render.WithScale(opts.Scale)}
	if opts.Labels {
		svgOpts = append(svgOpts, render.WithLabels())
	}
	return svgOpts
}

// dotOptions builds DOT export options.
func dotOptions(opts Options) render.DOTOptions {
	return render.DOTOptions{Detailed: opts.Detailed}
}
