// Package pipeline provides the core refinement pipeline for FlowGrid.
//
// This package implements the complete load → tidy → render pipeline that
// can be used by CLI and API components. By centralizing this logic, we
// ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of two cacheable stages:
//
//  1. Tidy: Refine element positions and connection routes for a diagram
//  2. Render: Generate output in various formats (SVG, PNG, DOT, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    HappyPath: []string{"flow1", "flow2"},
//	    Formats:   []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, d, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	// Tidy only
//	refined, diag, err := runner.Tidy(ctx, d, opts)
//
//	// Render an already-refined diagram
//	artifacts, err := runner.Render(ctx, refined, opts)
package pipeline

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowgrid/flowgrid/pkg/cache"
	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/refine"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// DefaultScale is the default render scale factor.
const DefaultScale = 1.0

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// Options contains all configuration for the refinement pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Tidy options
	HappyPath []string       `json:"happy_path,omitempty"` // Connection ids of the primary flow; falls back to the diagram's own
	Subset    []string       `json:"subset,omitempty"`     // Element ids to re-layout in place; empty means full layout
	Imported  bool           `json:"imported,omitempty"`   // Diagram came from an external tool with unreliable coordinates
	Config    *refine.Config `json:"config,omitempty"`     // Refinement config override; nil uses defaults
	Refresh   bool           `json:"refresh,omitempty"`    // Bypass the layout cache

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Scale    float64  `json:"scale,omitempty"`
	Labels   bool     `json:"labels,omitempty"`   // Draw element names in SVG output
	Detailed bool     `json:"detailed,omitempty"` // Include type and position in DOT labels

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Diagram is the refined diagram.
	Diagram diagram.Diagram

	// DiagramHash is the content hash of the input diagram.
	DiagramHash string

	// Diagnostics reports residual crossings. Only populated for subset
	// layouts; full layouts resolve crossings as part of refinement.
	Diagnostics refine.Diagnostics

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ElementCount    int
	ConnectionCount int
	TidyTime        time.Duration
	RenderTime      time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	TidyHit   bool // Whether the refined layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, png, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent - calling it multiple times has
// the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForTidy(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForTidy checks required fields for refinement.
func (o *Options) ValidateForTidy() error {
	for _, id := range o.Subset {
		if id == "" {
			return errors.New(errors.ErrCodeInvalidInput, "subset contains an empty element id")
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %v", o.Scale)
	}
	return ValidateFormats(o.Formats)
}

// EffectiveConfig resolves the refinement config for this run.
func (o *Options) EffectiveConfig() refine.Config {
	if o.Config != nil {
		return *o.Config
	}
	return refine.DefaultConfig()
}

// ConfigHash returns the content hash of the effective refinement config.
func (o *Options) ConfigHash() string {
	data, _ := json.Marshal(o.EffectiveConfig())
	return cache.Hash(data)
}

// SubsetKey returns the subset ids sorted and joined, for cache keys.
// Returns "" for a full layout.
func (o *Options) SubsetKey() string {
	if len(o.Subset) == 0 {
		return ""
	}
	ids := make([]string, len(o.Subset))
	copy(ids, o.Subset)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// LayoutKeyOpts returns cache key options for the tidy stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		ConfigHash: o.ConfigHash(),
		HappyPath:  strings.Join(o.HappyPath, ","),
		Subset:     o.SubsetKey(),
		Imported:   o.Imported,
	}
}

// RenderKeyOpts returns cache key options for one rendered format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:   format,
		Scale:    o.Scale,
		Labels:   o.Labels,
		Detailed: o.Detailed,
	}
}
