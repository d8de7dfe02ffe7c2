// Package cache provides caching for expensive layout and render results.
//
// The Cache interface abstracts over storage backends: FileCache for CLI
// usage, RedisCache for the API server, and NullCache for tests or when
// caching is disabled. Keyer generates deterministic cache keys from
// diagram content hashes so identical inputs hit the same entry.
package cache

import (
	"context"
	"time"
)

// TTLs for the cacheable pipeline stages. Keys are content-addressed, so
// entries never go stale; the TTLs only bound cache growth.
const (
	// TTLLayout is the expiration for refined-layout results.
	TTLLayout = 7 * 24 * time.Hour

	// TTLRender is the expiration for rendered artifacts.
	TTLRender = 24 * time.Hour
)

// Cache is the storage interface for cached results.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present; expired entries count as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an optional TTL. A zero TTL means the entry
	// never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// LayoutKeyOpts captures the inputs that affect a layout result beyond the
// diagram itself. Two requests with the same diagram hash but different
// options must map to different keys.
type LayoutKeyOpts struct {
	ConfigHash string // Hash of the refinement config in effect
	HappyPath  string // Joined happy-path override ids; empty when the diagram's own are used
	Subset     string // Sorted, joined subset ids; empty for full layout
	Imported   bool
}

// RenderKeyOpts captures the inputs that affect a rendered artifact.
type RenderKeyOpts struct {
	Format   string // "svg", "png", "dot", "json"
	Scale    float64
	Labels   bool
	Detailed bool
}

// Keyer generates cache keys for the different cacheable stages.
type Keyer interface {
	// LayoutKey generates a key for a refined-layout result.
	LayoutKey(diagramHash string, opts LayoutKeyOpts) string

	// RenderKey generates a key for a rendered artifact.
	RenderKey(diagramHash string, opts RenderKeyOpts) string
}

// DefaultKeyer is the standard key generator. Keys are prefixed by stage
// and built from a SHA-256 hash of the inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key for a refined-layout result.
func (k *DefaultKeyer) LayoutKey(diagramHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", diagramHash, opts)
}

// RenderKey generates a key for a rendered artifact.
func (k *DefaultKeyer) RenderKey(diagramHash string, opts RenderKeyOpts) string {
	return hashKey("render", diagramHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
