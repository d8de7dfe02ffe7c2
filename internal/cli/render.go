package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path (multiple)
	formats  []string // output formats: svg, png, dot, json
	scale    float64  // scale factor for svg output
	labels   bool     // draw element names in svg output
	detailed bool     // include type and position in dot labels
	noCache  bool     // disable the result cache
}

// renderCommand creates the render command for generating output files.
// The diagram is drawn as-is; run tidy first for refined output.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a diagram to SVG, PNG, or DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "scale factor for SVG output")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "draw element names")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include type and position in DOT labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// runRender loads the diagram and writes the requested formats to disk.
func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	if err := errors.ValidatePath(input); err != nil {
		return err
	}

	d, err := diagram.ReadFile(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded diagram", "elements", len(d.Elements), "connections", len(d.Connections))

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	pipelineOpts := pipeline.Options{
		Formats:  opts.formats,
		Scale:    opts.scale,
		Labels:   opts.labels,
		Detailed: opts.detailed,
		Logger:   c.Logger,
	}

	prog := newProgress(c.Logger)
	artifacts, hit, err := runner.RenderWithCacheInfo(ctx, d, pipelineOpts)
	if err != nil {
		printError("Render failed: %s", errors.UserMessage(err))
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d format(s)", len(artifacts)))

	if len(opts.formats) == 1 {
		return c.writeSingle(artifacts[opts.formats[0]], opts.formats[0], input, opts, hit)
	}
	return c.writeMultiple(artifacts, input, opts, hit)
}

// writeSingle writes one artifact, honoring an explicit --output path.
func (c *CLI) writeSingle(data []byte, format, input string, opts *renderOpts, cached bool) error {
	path := opts.output
	if path == "" {
		path = basePath("", input) + "." + format
	}

	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return err
	}

	printSuccess("Rendered %s", format)
	printStats(0, 0, cached)
	printFile(path)
	return nil
}

// writeMultiple writes every artifact as <base>.<format>.
func (c *CLI) writeMultiple(artifacts map[string][]byte, input string, opts *renderOpts, cached bool) error {
	base := basePath(opts.output, input)

	printSuccess("Rendered %d formats", len(artifacts))
	printStats(0, 0, cached)
	for _, format := range opts.formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := fmt.Sprintf("%s.%s", base, format)
		out, err := openOutput(path)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			out.Close()
			return err
		}
		out.Close()
		printFile(path)
	}
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input. If output carries a
// known format extension, that extension is stripped so format suffixes can
// be appended uniformly.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// openOutput opens path for writing, or stdout when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
