package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowgrid/flowgrid/pkg/cache"
	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/observability"
	"github.com/flowgrid/flowgrid/pkg/refine"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete tidy → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, d diagram.Diagram, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Tidy
	tidyStart := time.Now()
	refined, diag, tidyHit, err := r.TidyWithCacheInfo(ctx, d, opts)
	if err != nil {
		// Keep structured codes from below; only bare errors become internal.
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeInternal, err, "tidy")
		}
		return nil, err
	}
	result.Diagram = refined
	result.Diagnostics = diag
	result.Stats.TidyTime = time.Since(tidyStart)
	result.Stats.ElementCount = len(refined.Elements)
	result.Stats.ConnectionCount = len(refined.Connections)
	result.CacheInfo.TidyHit = tidyHit

	// Compute diagram hash for cache keys and API responses
	if data, err := diagram.Marshal(d); err == nil {
		result.DiagramHash = cache.Hash(data)
	}

	r.Logger.Info("refined layout",
		"elements", result.Stats.ElementCount,
		"connections", result.Stats.ConnectionCount,
		"duration", result.Stats.TidyTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, refined, opts)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeInternal, err, "render")
		}
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// tidyPayload is the cached form of one tidy result.
type tidyPayload struct {
	Diagram     diagram.Diagram    `json:"diagram"`
	Diagnostics refine.Diagnostics `json:"diagnostics"`
}

// TidyWithCacheInfo refines a diagram with caching and returns cache hit info.
func (r *Runner) TidyWithCacheInfo(ctx context.Context, d diagram.Diagram, opts Options) (diagram.Diagram, refine.Diagnostics, bool, error) {
	if err := opts.ValidateForTidy(); err != nil {
		return diagram.Diagram{}, refine.Diagnostics{}, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key
	data, err := diagram.Marshal(d)
	if err != nil {
		return diagram.Diagram{}, refine.Diagnostics{}, false, err
	}
	diagramHash := cache.Hash(data)
	cacheKey := r.Keyer.LayoutKey(diagramHash, opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var payload tidyPayload
			if err := json.Unmarshal(cached, &payload); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return payload.Diagram, payload.Diagnostics, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	// Refine
	start := time.Now()
	observability.Pipeline().OnTidyStart(ctx, len(d.Elements))
	refined, diag, err := r.tidy(ctx, d, opts)
	observability.Pipeline().OnTidyComplete(ctx, len(d.Elements), time.Since(start), err)
	if err != nil {
		return diagram.Diagram{}, refine.Diagnostics{}, false, err
	}

	// Cache the result
	if payload, err := json.Marshal(tidyPayload{Diagram: refined, Diagnostics: diag}); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, payload, cache.TTLLayout)
		observability.Cache().OnCacheSet(ctx, "layout", len(payload))
	}

	return refined, diag, false, nil // Cache miss
}

// Tidy is a convenience wrapper that calls TidyWithCacheInfo and discards the cache hit info.
func (r *Runner) Tidy(ctx context.Context, d diagram.Diagram, opts Options) (diagram.Diagram, refine.Diagnostics, error) {
	refined, diag, _, err := r.TidyWithCacheInfo(ctx, d, opts)
	return refined, diag, err
}

// tidy runs the refinement engine on a fresh registry built from d.
func (r *Runner) tidy(ctx context.Context, d diagram.Diagram, opts Options) (diagram.Diagram, refine.Diagnostics, error) {
	reg, err := diagram.ToRegistry(d)
	if err != nil {
		return diagram.Diagram{}, refine.Diagnostics{}, errors.Wrap(errors.ErrCodeInvalidDiagram, err, "build registry")
	}

	happy := opts.HappyPath
	if len(happy) == 0 {
		happy = d.HappyPath
	}
	engineOpts := refine.Options{
		HappyPath: happy,
		Imported:  opts.Imported,
	}

	eng := refine.New(reg,
		refine.WithConfig(opts.EffectiveConfig()),
		refine.WithLogger(opts.Logger),
	)

	var diag refine.Diagnostics
	if len(opts.Subset) > 0 {
		diag, err = eng.LayoutSubset(ctx, opts.Subset, engineOpts)
	} else {
		err = eng.Layout(ctx, engineOpts)
	}
	if err != nil {
		return diagram.Diagram{}, refine.Diagnostics{}, err
	}

	refined := diagram.FromRegistry(reg)
	refined.Name = d.Name
	refined.HappyPath = happy
	return refined, diag, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// The diagram is expected to be refined already; rendering draws it as-is.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, d diagram.Diagram, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	data, err := diagram.Marshal(d)
	if err != nil {
		return nil, false, err
	}
	diagramHash := cache.Hash(data)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.RenderKey(diagramHash, opts.RenderKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "render")
		return artifacts, true, nil // All artifacts from cache
	}
	observability.Cache().OnCacheMiss(ctx, "render")

	// Render all formats
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := RenderDiagram(ctx, d, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.RenderKey(diagramHash, opts.RenderKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLRender)
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, d diagram.Diagram, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, d, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
