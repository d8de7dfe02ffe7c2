package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/pipeline"
)

// tidyOpts holds the command-line flags for the tidy command.
type tidyOpts struct {
	output   string // output file path; default derives from the input
	happy    string // comma-separated connection ids of the primary flow
	subset   string // comma-separated element ids to re-layout in place
	profile  string // TOML layout profile path
	imported bool   // treat coordinates as unreliable (wider correction radius)
	refresh  bool   // recompute even when the result is cached
	noCache  bool   // disable the result cache entirely
}

// tidyCommand creates the tidy command for refining diagram layouts.
// Without an input file it opens an interactive picker over the diagram
// files in the current directory.
func (c *CLI) tidyCommand() *cobra.Command {
	var opts tidyOpts

	cmd := &cobra.Command{
		Use:   "tidy [file]",
		Short: "Refine a diagram's layout",
		Long: `Tidy refines a diagram's element positions and connection routes: rows are
snapped to the spacing grid, the primary flow is straightened, boundary events
are pinned to their host borders with their exception chains laid out below,
and connection routes are repaired to stay orthogonal.

Results are cached by content hash; repeating a tidy with unchanged input is
instant. Use --refresh to force recomputation or --no-cache to skip caching.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			} else {
				picked, err := pickDiagramFile(".")
				if err != nil {
					return err
				}
				if picked == "" {
					return nil // user quit the picker
				}
				input = picked
			}
			return c.runTidy(cmd.Context(), input, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.tidy.json)")
	cmd.Flags().StringVar(&opts.happy, "happy", "", "connection ids of the primary flow (comma-separated; default: the diagram's own)")
	cmd.Flags().StringVar(&opts.subset, "subset", "", "element ids to re-layout in place (comma-separated)")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "TOML layout profile overriding the tuned defaults")
	cmd.Flags().BoolVar(&opts.imported, "imported", false, "treat coordinates as imported from another tool")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if the result is cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// runTidy loads the diagram, runs the refinement pipeline, and writes the
// refined diagram next to the input.
func (c *CLI) runTidy(ctx context.Context, input string, opts *tidyOpts) error {
	if err := errors.ValidatePath(input); err != nil {
		return err
	}

	d, err := diagram.ReadFile(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded diagram", "elements", len(d.Elements), "connections", len(d.Connections))

	pipelineOpts := pipeline.Options{
		HappyPath: parseIDList(opts.happy),
		Subset:    parseIDList(opts.subset),
		Imported:  opts.imported,
		Refresh:   opts.refresh,
		Logger:    c.Logger,
	}
	if opts.profile != "" {
		cfg, err := loadProfile(opts.profile)
		if err != nil {
			return err
		}
		pipelineOpts.Config = cfg
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spin := newSpinnerWithContext(ctx, "Refining layout...")
	spin.Start()

	refined, diag, hit, err := runner.TidyWithCacheInfo(ctx, d, pipelineOpts)
	spin.Stop()
	if spin.Cancelled() {
		return ctx.Err()
	}
	if err != nil {
		printError("Tidy failed: %s", errors.UserMessage(err))
		return err
	}
	prog.done(fmt.Sprintf("Refined %d elements", len(refined.Elements)))

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".tidy.json"
	}
	if err := diagram.WriteFile(refined, output); err != nil {
		return err
	}

	name := refined.Name
	if name == "" {
		name = filepath.Base(input)
	}
	printSuccess("Tidied %s", name)
	printStats(len(refined.Elements), len(refined.Connections), hit)
	if len(pipelineOpts.Subset) > 0 {
		printCrossings(diag)
	}
	printFile(output)
	printNextStep("Render it", fmt.Sprintf("flowgrid render %s", output))
	return nil
}

// pickDiagramFile runs the interactive picker and returns the chosen path.
// An empty path means the user quit without choosing.
func pickDiagramFile(dir string) (string, error) {
	entries, err := listDiagramFiles(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		printWarning("No diagram files found in %s", dir)
		return "", nil
	}

	model, err := tea.NewProgram(NewDiagramListModel(entries)).Run()
	if err != nil {
		return "", err
	}
	final, ok := model.(DiagramListModel)
	if !ok || final.Selected == nil {
		return "", nil
	}
	return final.Selected.Path, nil
}
